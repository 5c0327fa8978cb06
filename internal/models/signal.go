package models

// Signal represents a strategy trading decision
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// IsEntry reports whether the signal implies opening a position
func (s Signal) IsEntry() bool {
	return s == SignalBuy
}

// IsExit reports whether the signal implies closing a position
func (s Signal) IsExit() bool {
	return s == SignalSell
}
