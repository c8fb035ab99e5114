package contract

import "github.com/loomnetwork/go-loom"

// Msg is a message a contract asks the host to dispatch to one of its modules once the contract
// call returns. The host dispatches them in order, any failure aborts the whole transaction.
type Msg interface {
	isMsg()
}

// BindNameMsg binds a name to an address through the name module.
type BindNameMsg struct {
	Name     string       `json:"name"`
	Address  loom.Address `json:"address"`
	Restrict bool         `json:"restrict"`
}

func (*BindNameMsg) isMsg() {}

// AddAttributeMsg writes an attribute to an account through the attribute module.
type AddAttributeMsg struct {
	Account   loom.Address       `json:"account"`
	Name      string             `json:"name"`
	Value     []byte             `json:"value"`
	ValueType AttributeValueType `json:"value_type"`
}

func (*AddAttributeMsg) isMsg() {}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

func NewEvent(eventType string) Event {
	return Event{Type: eventType}
}

// Add returns a copy of the event with the attribute appended.
func (e Event) Add(key, value string) Event {
	attrs := make([]Attribute, len(e.Attributes), len(e.Attributes)+1)
	copy(attrs, e.Attributes)
	e.Attributes = append(attrs, Attribute{Key: key, Value: value})
	return e
}

// Get returns the value of the first attribute with the given key.
func (e Event) Get(key string) (string, bool) {
	for _, attr := range e.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Response is returned by the mutating contract entry points.
type Response struct {
	Messages   []Msg
	Attributes []Attribute
	Events     []Event
	Data       []byte
}

func NewResponse() *Response {
	return &Response{}
}

func (r *Response) AddMessage(msg Msg) *Response {
	r.Messages = append(r.Messages, msg)
	return r
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) AddEvent(event Event) *Response {
	r.Events = append(r.Events, event)
	return r
}

func (r *Response) SetData(data []byte) *Response {
	r.Data = data
	return r
}
