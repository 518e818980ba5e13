package input

// Poller yields the keys received since the last call without blocking.
type Poller interface {
	Poll() []Key
}

// Queue buffers keys decoded elsewhere, such as by a tcell screen.
type Queue struct {
	ch chan Key
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Key, size)}
}

// Push enqueues k, dropping it when the queue is full.
func (q *Queue) Push(k Key) {
	select {
	case q.ch <- k:
	default:
	}
}

// Poll returns every queued key.
func (q *Queue) Poll() []Key {
	var keys []Key
	for {
		select {
		case k := <-q.ch:
			keys = append(keys, k)
		default:
			return keys
		}
	}
}
