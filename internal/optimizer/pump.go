package optimizer

// progressBuffer bounds the updates queued for a slow consumer.
const progressBuffer = 16

// pump forwards progress to a callback on its own goroutine. Sends never
// block: when the buffer is full the update is dropped.
type pump struct {
	ch   chan Progress
	done chan struct{}
}

func newPump(fn func(Progress)) *pump {
	if fn == nil {
		return nil
	}
	p := &pump{ch: make(chan Progress, progressBuffer), done: make(chan struct{})}
	go func() {
		defer close(p.done)
		for pr := range p.ch {
			fn(pr)
		}
	}()
	return p
}

// send reports whether the update was queued.
func (p *pump) send(pr Progress) bool {
	if p == nil {
		return false
	}
	select {
	case p.ch <- pr:
		return true
	default:
		return false
	}
}

// close stops accepting updates and returns at once. Queued updates are
// still delivered, and done is closed after the last callback returns.
func (p *pump) close() {
	if p == nil {
		return
	}
	close(p.ch)
}
