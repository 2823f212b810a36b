package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskflow/taskflow/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func startRelay(t *testing.T, client *redis.Client, hub *Hub) *Relay {
	t.Helper()

	relay := NewRelay(client, hub, testLogger())
	relay.SetBackoff(10*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	select {
	case <-relay.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("relay never subscribed")
	}
	return relay
}

func TestRedisPublisher_PublishesOnOwnerChannel(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, ChannelFor("alice"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	pub := NewRedisPublisher(client)
	task := &model.Task{ID: "t1", OwnerID: "alice", Title: "Write"}
	if err := pub.Publish(ctx, NewTaskEvent(TaskCreated, task)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Type != TaskCreated || ev.Task.Title != "Write" {
			t.Errorf("decoded %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message on owner channel")
	}
}

func TestRedisPublisher_RequiresOwner(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	if err := NewRedisPublisher(client).Publish(context.Background(), Event{Type: TaskDeleted}); err == nil {
		t.Error("Publish() without owner succeeded")
	}
}

func TestRelay_RoutesPerUser(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	hub := NewHub(4, nil)
	startRelay(t, client, hub)

	alice, _ := hub.Subscribe("alice")
	bob, _ := hub.Subscribe("bob")

	pub := NewRedisPublisher(client)
	if err := pub.Publish(context.Background(), NewDeletedEvent("alice", "t1")); err != nil {
		t.Fatal(err)
	}

	if ev := receive(t, alice); ev.TaskID != "t1" || ev.Type != TaskDeleted {
		t.Errorf("alice got %+v", ev)
	}
	expectNothing(t, bob)
}

func TestRelay_DropsForgedAndUnknownEvents(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	hub := NewHub(4, nil)
	startRelay(t, client, hub)

	bob, _ := hub.Subscribe("bob")
	ctx := context.Background()

	// Published on alice's channel but claims bob as owner.
	forged, _ := json.Marshal(NewDeletedEvent("bob", "t1"))
	client.Publish(ctx, ChannelFor("alice"), forged)
	client.Publish(ctx, ChannelFor("bob"), `{"type":"taskMoved","ownerId":"bob"}`)

	expectNothing(t, bob)
}

func TestBroadcaster_PublishesThroughHub(t *testing.T) {
	t.Parallel()

	hub := NewHub(4, nil)
	sub, _ := hub.Subscribe("alice")

	b := NewBroadcaster(hub, 0, testLogger(), nil)
	b.PublishAsync(NewDeletedEvent("alice", "t1"))

	if ev := receive(t, sub); ev.TaskID != "t1" {
		t.Errorf("got %+v", ev)
	}
	if err := b.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}
