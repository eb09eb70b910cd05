// Package testutil holds fakes shared by bot tests.
package testutil

import (
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Sent is one outgoing message captured by Context.
type Sent struct {
	What    interface{}
	Options []interface{}
}

// Markup returns the reply markup passed along with the message, if any.
func (s Sent) Markup() *telebot.ReplyMarkup {
	for _, opt := range s.Options {
		if m, ok := opt.(*telebot.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

// Context is a telebot.Context fake recording outgoing calls.
// Methods not overridden panic through the nil embedded interface.
type Context struct {
	telebot.Context

	mu        sync.Mutex
	User      *telebot.User
	Msg       *telebot.Message
	Cb        *telebot.Callback
	SendErr   error
	Sent      []Sent
	Edited    []Sent
	Responses []*telebot.CallbackResponse
	store     map[string]interface{}
}

// NewMessage builds a context for a text message from userID.
func NewMessage(userID int64, text string) *Context {
	user := &telebot.User{ID: userID, FirstName: "Test", LanguageCode: "en"}
	return &Context{
		User: user,
		Msg: &telebot.Message{
			ID:     1,
			Sender: user,
			Chat:   &telebot.Chat{ID: userID},
			Text:   text,
		},
	}
}

// NewCallback builds a context for an inline button press carrying data.
func NewCallback(userID int64, data string) *Context {
	user := &telebot.User{ID: userID, FirstName: "Test", LanguageCode: "en"}
	return &Context{
		User: user,
		Cb: &telebot.Callback{
			ID:     "cb-1",
			Sender: user,
			Data:   data,
			Message: &telebot.Message{
				ID:   2,
				Chat: &telebot.Chat{ID: userID},
			},
		},
	}
}

func (c *Context) Sender() *telebot.User { return c.User }

func (c *Context) Callback() *telebot.Callback { return c.Cb }

func (c *Context) Message() *telebot.Message {
	if c.Cb != nil {
		return c.Cb.Message
	}
	return c.Msg
}

func (c *Context) Text() string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = val
}

func (c *Context) Send(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, Sent{What: what, Options: opts})
	return c.SendErr
}

func (c *Context) Edit(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edited = append(c.Edited, Sent{What: what, Options: opts})
	return nil
}

func (c *Context) Respond(resp ...*telebot.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		c.Responses = append(c.Responses, &telebot.CallbackResponse{})
		return nil
	}
	c.Responses = append(c.Responses, resp[0])
	return nil
}

// Texts returns the string payloads of every sent message.
func (c *Context) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Sent))
	for _, s := range c.Sent {
		if text, ok := s.What.(string); ok {
			out = append(out, text)
		}
	}
	return out
}
