package reminder

import (
	"container/heap"
	"time"
)

// trigger is one daily time of day at which the sweep runs.
type trigger struct {
	name string // HH:MM
	hh   int
	mm   int
	at   time.Time // next run, UTC
}

// triggerQueue is a min-heap by next run. Triggers are unique by name.
type triggerQueue struct {
	backingArray []*trigger
	triggers     map[string]*trigger
}

func newTriggerQueue() *triggerQueue {
	q := &triggerQueue{
		backingArray: []*trigger{},
		triggers:     make(map[string]*trigger),
	}
	heap.Init(q)
	return q
}

func (q triggerQueue) Len() int {
	return len(q.backingArray)
}

func (q triggerQueue) Less(i, j int) bool {
	return q.backingArray[i].at.Before(q.backingArray[j].at)
}

func (q triggerQueue) Swap(i, j int) {
	q.backingArray[j], q.backingArray[i] = q.backingArray[i], q.backingArray[j]
}

func (q *triggerQueue) Push(x any) {
	t, ok := x.(*trigger)
	if !ok {
		return
	}

	q.triggers[t.name] = t
	q.backingArray = append(q.backingArray, t)
}

func (q *triggerQueue) Pop() any {
	n := len(q.backingArray)
	if n == 0 {
		return nil
	}

	popped := q.backingArray[n-1]
	q.backingArray = q.backingArray[:n-1]
	delete(q.triggers, popped.name)

	return popped
}

func (q *triggerQueue) Has(name string) bool {
	_, ok := q.triggers[name]
	return ok
}

func (q *triggerQueue) Peek() *trigger {
	if len(q.backingArray) == 0 {
		return nil
	}

	return q.backingArray[0]
}
