package main

// ChatEntry is one line of a ship's chat log
type ChatEntry struct {
	Nick string `json:"nick"`
	Text string `json:"text"`
}

// ChatLog is a fixed-capacity ring that evicts the oldest entry on overflow.
type ChatLog struct {
	buf   []ChatEntry
	start int
	n     int
}

func NewChatLog(capacity int) *ChatLog {
	return &ChatLog{buf: make([]ChatEntry, capacity)}
}

// Append adds e, dropping the oldest entry when the log is full
func (c *ChatLog) Append(e ChatEntry) {
	if len(c.buf) == 0 {
		return
	}
	if c.n < len(c.buf) {
		c.buf[(c.start+c.n)%len(c.buf)] = e
		c.n++
		return
	}
	c.buf[c.start] = e
	c.start = (c.start + 1) % len(c.buf)
}

func (c *ChatLog) Len() int { return c.n }

// Entries returns a copy, oldest first
func (c *ChatLog) Entries() []ChatEntry {
	out := make([]ChatEntry, c.n)
	for i := 0; i < c.n; i++ {
		out[i] = c.buf[(c.start+i)%len(c.buf)]
	}
	return out
}
