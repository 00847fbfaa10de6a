package decentdb

import (
	"sync"

	"github.com/decentdb/decentdb/core"
)

// ErrorContext holds the last error reported through a handle. A failure
// overwrites it; success leaves it alone.
type ErrorContext struct {
	mu      sync.Mutex
	code    core.Code
	message string
	seq     uint64
}

// set records err and returns it unchanged as a coded error.
func (c *ErrorContext) set(err error) error {
	if err == nil {
		return nil
	}
	coded := core.Wrap(core.CodeInternal, err)
	c.mu.Lock()
	c.code = coded.Code
	c.message = coded.Message
	c.seq++
	c.mu.Unlock()
	return coded
}

// Code is the code of the last failure, CodeOK if there was none.
func (c *ErrorContext) Code() core.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// Message is the message of the last failure.
func (c *ErrorContext) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Seq counts recorded failures, so it moves whenever the last error is
// replaced, even by an identical one.
func (c *ErrorContext) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *ErrorContext) Last() (core.Code, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.message
}

// Record stores err as the last failure and returns it as a coded error.
// It lets embedding layers report their own failures through the same slot.
func (c *ErrorContext) Record(err error) error {
	return c.set(err)
}
