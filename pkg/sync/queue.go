package sync

// compareQueue is an unbounded FIFO of compare tasks.
//
// Copy workers send into it while compare workers may be blocked on a full
// copy queue, so a send must never wait for a receiver. A pump goroutine
// buffers tasks between the two channels. Close lets the pump flush what
// it holds before the output channel is closed. Sending after Close panics.
type compareQueue struct {
	in  chan CompareTask
	out chan CompareTask
}

func newCompareQueue() *compareQueue {
	q := &compareQueue{
		in:  make(chan CompareTask),
		out: make(chan CompareTask),
	}
	go q.pump()
	return q
}

func (q *compareQueue) pump() {
	var pending []CompareTask
	in := q.in

	for in != nil || len(pending) > 0 {
		var out chan CompareTask
		var next CompareTask
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case task, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, task)
		case out <- next:
			pending[0] = CompareTask{}
			pending = pending[1:]
		}
	}

	close(q.out)
}

// Send enqueues a task
func (q *compareQueue) Send(task CompareTask) {
	q.in <- task
}

// Tasks returns the receive side. It is closed once the queue is closed
// and every buffered task has been delivered.
func (q *compareQueue) Tasks() <-chan CompareTask {
	return q.out
}

// Close stops accepting tasks
func (q *compareQueue) Close() {
	close(q.in)
}
