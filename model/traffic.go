package model

// TrafficCell holds the byte/packet deltas observed for one application
// since the last deposit.
type TrafficCell struct {
	BytesRx uint64 `json:"bytes_rx"`
	BytesTx uint64 `json:"bytes_tx"`
	PktRx   uint64 `json:"pkt_rx"`
	PktTx   uint64 `json:"pkt_tx"`
}

// Empty reports whether the cell carries no traffic at all.
func (c TrafficCell) Empty() bool {
	return c.BytesRx == 0 && c.BytesTx == 0 && c.PktRx == 0 && c.PktTx == 0
}

// Add folds a packet's length and direction into the cell.
func (c *TrafficCell) Add(length uint64, dir Direction) {
	switch dir {
	case DirIn:
		c.BytesRx += length
		c.PktRx++
	case DirOut:
		c.BytesTx += length
		c.PktTx++
	}
}
