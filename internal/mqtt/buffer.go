package mqtt

// bufferedMsg is a serialized message waiting for the broker to come back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the most recent messages published while disconnected.
// When full, the oldest message is overwritten and counted as dropped.
// Callers synchronize access.
type ringBuffer struct {
	slots   []bufferedMsg
	next    int
	size    int
	dropped int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{slots: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.slots[r.next] = msg
	r.next = (r.next + 1) % len(r.slots)
	if r.size == len(r.slots) {
		r.dropped++
		return
	}
	r.size++
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.size == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.size)
	first := r.next - r.size
	if first < 0 {
		first += len(r.slots)
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.slots[(first+i)%len(r.slots)])
	}
	clear(r.slots)
	r.next, r.size, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.size
}
