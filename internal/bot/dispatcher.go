package bot

import "sync"

// dispatcher runs items in arrival order per key. Each key with pending items
// has one worker goroutine; different keys are processed concurrently.
type dispatcher[T any] struct {
	mu     sync.Mutex
	queues map[int64][]T
	handle func(T)
	wg     sync.WaitGroup
}

func newDispatcher[T any](handle func(T)) *dispatcher[T] {
	return &dispatcher[T]{
		queues: make(map[int64][]T),
		handle: handle,
	}
}

// Dispatch enqueues item for key, starting a worker if the key is idle
func (d *dispatcher[T]) Dispatch(key int64, item T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, active := d.queues[key]
	d.queues[key] = append(queue, item)
	if !active {
		d.wg.Add(1)
		go d.drain(key)
	}
}

func (d *dispatcher[T]) drain(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		item := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()

		d.handle(item)
	}
}

// Wait blocks until every queued item has been handled
func (d *dispatcher[T]) Wait() {
	d.wg.Wait()
}
