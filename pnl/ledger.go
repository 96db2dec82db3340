package pnl

import "time"

// Lot is a slice of open inventory. Positive Qty is long, negative is short.
type Lot struct {
	Qty      float64
	Price    float64
	OpenedAt time.Time
}

// Ledger is the FIFO queue of open lots for one account and instrument.
// The zero value is an empty ledger.
type Ledger struct {
	lots []Lot
	head int
}

// Push appends a lot at the tail.
func (l *Ledger) Push(lot Lot) {
	l.lots = append(l.lots, lot)
}

// Front returns the oldest open lot.
func (l *Ledger) Front() (*Lot, bool) {
	if l.Len() == 0 {
		return nil, false
	}
	return &l.lots[l.head], true
}

// ConsumeFront reduces the absolute quantity of the head lot by up to qty
// and returns how much was consumed. The lot is dropped once what remains
// is below Epsilon.
func (l *Ledger) ConsumeFront(qty float64) float64 {
	lot, ok := l.Front()
	if !ok || qty <= 0 {
		return 0
	}

	consumed := min(qty, abs(lot.Qty))
	if lot.Qty > 0 {
		lot.Qty -= consumed
	} else {
		lot.Qty += consumed
	}

	if abs(lot.Qty) < Epsilon {
		l.pop()
	}
	return consumed
}

// Len is the number of open lots.
func (l *Ledger) Len() int {
	return len(l.lots) - l.head
}

// Net is the signed sum of all open lots.
func (l *Ledger) Net() float64 {
	var n float64
	for _, lot := range l.lots[l.head:] {
		n += lot.Qty
	}
	return n
}

func (l *Ledger) pop() {
	l.lots[l.head] = Lot{}
	l.head++
	if l.head == len(l.lots) {
		l.lots = l.lots[:0]
		l.head = 0
	}
}
