package queue_test

import (
	"context"
	"testing"
	"time"

	queue "github.com/ndiyar/vigil/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueueEnqueueDequeue(t *testing.T) {
	Convey("Given a queue with a small capacity", t, func() {
		q := queue.NewInMemoryQueue(
			queue.WithName("crowd-result"),
			queue.WithCapacity(2),
		)
		ctx := context.Background()

		Convey("When messages are enqueued within capacity", func() {
			ok1 := q.Enqueue(ctx, queue.Message{Topic: "crowd-result", Payload: []byte("a")})
			ok2 := q.Enqueue(ctx, queue.Message{Topic: "crowd-result", Payload: []byte("b")})

			So(ok1, ShouldBeTrue)
			So(ok2, ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then they are dequeued in arrival order", func() {
				ch := q.Dequeue(ctx)
				m1 := <-ch
				m2 := <-ch
				So(string(m1.Payload), ShouldEqual, "a")
				So(string(m2.Payload), ShouldEqual, "b")
			})
		})

		Convey("When the queue is full", func() {
			q.Enqueue(ctx, queue.Message{Payload: []byte("a")})
			q.Enqueue(ctx, queue.Message{Payload: []byte("b")})

			Convey("Then further enqueues drop instead of blocking", func() {
				done := make(chan bool, 1)
				go func() {
					done <- q.Enqueue(ctx, queue.Message{Payload: []byte("c")})
				}()
				select {
				case ok := <-done:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("enqueue blocked on a full queue")
				}
			})
		})
	})
}

func TestInMemoryQueueClose(t *testing.T) {
	Convey("Given a queue with buffered messages", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		ctx := context.Background()
		q.Enqueue(ctx, queue.Message{Payload: []byte("a")})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues are rejected", func() {
				So(q.Enqueue(ctx, queue.Message{Payload: []byte("b")}), ShouldBeFalse)
				So(q.IsClosed(), ShouldBeTrue)
			})

			Convey("Then buffered messages drain and the channel closes", func() {
				ch := q.Dequeue(ctx)
				m, ok := <-ch
				So(ok, ShouldBeTrue)
				So(string(m.Payload), ShouldEqual, "a")

				_, ok = <-ch
				So(ok, ShouldBeFalse)
			})

			Convey("Then closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
