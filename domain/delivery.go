package domain

// Delivery is one message handed out by the event log.
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}
