package model

import "testing"

func TestTrafficCellAdd(t *testing.T) {
	var c TrafficCell
	c.Add(100, DirIn)
	c.Add(50, DirOut)

	if c.BytesRx != 100 || c.PktRx != 1 {
		t.Errorf("rx side wrong: %+v", c)
	}
	if c.BytesTx != 50 || c.PktTx != 1 {
		t.Errorf("tx side wrong: %+v", c)
	}
	if c.Empty() {
		t.Error("cell with traffic should not be Empty")
	}
}

func TestTrafficCellEmpty(t *testing.T) {
	var c TrafficCell
	if !c.Empty() {
		t.Error("zero-value cell should be Empty")
	}
}
