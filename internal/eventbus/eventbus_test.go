package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopic_PublishInOrder(t *testing.T) {
	var topic Topic[int]
	var got []string
	topic.Subscribe(func(v int) { got = append(got, "a") })
	topic.Subscribe(func(v int) { got = append(got, "b") })

	topic.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, topic.Len())
}

func TestTopic_Unsubscribe(t *testing.T) {
	var topic Topic[string]
	calls := 0
	sub := topic.Subscribe(func(string) { calls++ })

	assert.True(t, topic.Unsubscribe(sub))
	assert.False(t, topic.Unsubscribe(sub))

	topic.Publish("x")
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, topic.Len())
}

func TestTopic_UnsubscribeDuringPublish(t *testing.T) {
	var topic Topic[int]
	calls := 0
	var second Subscription
	topic.Subscribe(func(int) {
		calls++
		topic.Unsubscribe(second)
	})
	second = topic.Subscribe(func(int) { calls++ })

	// second handler was part of the snapshot and still runs this time
	topic.Publish(0)
	assert.Equal(t, 2, calls)

	topic.Publish(0)
	assert.Equal(t, 3, calls)
}

func TestGroup_Release(t *testing.T) {
	var a Topic[int]
	var b Topic[bool]
	var g Group

	Add(&g, &a, func(int) {})
	Add(&g, &b, func(bool) {})
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())

	g.Release()
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, b.Len())
}
