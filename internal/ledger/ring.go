package ledger

import "fmt"

// Record is the short text description of one transaction.
type Record string

func newRecord(kind string, amount int64) Record {
	text := fmt.Sprintf("%s: %d", kind, amount)
	if len(text) > RecordLimit {
		text = text[:RecordLimit]
	}
	return Record(text)
}

// ring is a fixed-capacity transaction log. count only grows; the n-th
// record ever appended lives in slot n mod Capacity.
type ring struct {
	slots [Capacity]Record
	count uint64
}

func (r *ring) append(rec Record) {
	r.slots[r.count%Capacity] = rec
	r.count++
}

// last returns up to n of the most recent records, oldest first.
func (r *ring) last(n int) []Record {
	held := r.count
	if held > Capacity {
		held = Capacity
	}
	if uint64(n) > held {
		n = int(held)
	}
	start := r.count - uint64(n)
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.slots[(start+uint64(i))%Capacity])
	}
	return out
}
