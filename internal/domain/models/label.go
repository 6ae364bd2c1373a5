package models

// Label is a discrete direction class for a forward return.
type Label int8

const (
	Bearish Label = -1
	Neutral Label = 0
	Bullish Label = 1
)

func (l Label) String() string {
	switch l {
	case Bearish:
		return "bearish"
	case Bullish:
		return "bullish"
	default:
		return "neutral"
	}
}

// Classes lists the label values in ascending order.
func Classes() []Label { return []Label{Bearish, Neutral, Bullish} }
