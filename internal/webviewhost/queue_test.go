package webviewhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushDrainFIFOOrder(t *testing.T) {
	q := NewMessageQueue(8)
	q.Push(LoadURL("https://a"))
	q.Push(EvalJS("1+1"))
	q.Push(EmitEvent("ready", "{}"))

	drained := q.Drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, KindLoadURL, drained[0].Kind)
	assert.Equal(t, KindEvalJS, drained[1].Kind)
	assert.Equal(t, KindEmitEvent, drained[2].Kind)
}

func TestPushCoalescesSameKindWhenFull(t *testing.T) {
	q := NewMessageQueue(1)
	q.Push(LoadURL("https://first"))
	q.Push(LoadURL("https://second"))

	drained := q.Drain()
	assert.Len(t, drained, 1)
	assert.Equal(t, "https://second", drained[0].URL)
}

func TestEvalJSNeverCoalescedOrDropped(t *testing.T) {
	q := NewMessageQueue(1)
	q.Push(LoadURL("https://a"))
	q.Push(EvalJS("first()"))
	q.Push(EvalJS("second()"))
	q.Push(EvalJS("third()"))

	drained := q.Drain()
	var evalScripts []string
	for _, c := range drained {
		if c.Kind == KindEvalJS {
			evalScripts = append(evalScripts, c.Script)
		}
	}
	assert.Equal(t, []string{"first()", "second()", "third()"}, evalScripts)
}

func TestDrainEmptiesQueue(t *testing.T) {
	q := NewMessageQueue(4)
	q.Push(EvalJS("x"))
	assert.Equal(t, 1, q.Len())

	_ = q.Drain()
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())
}

func TestCoalescingDoesNotAffectOtherKinds(t *testing.T) {
	q := NewMessageQueue(1)
	q.Push(LoadURL("https://a"))
	q.Push(EmitEvent("evt", "{}"))

	drained := q.Drain()
	assert.Len(t, drained, 2)
}
