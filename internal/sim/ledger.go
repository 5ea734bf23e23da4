/*
Package sim
File: ledger.go
Description:
    Sales settlement and on-time delivery. Available stock is cleared
    against demand and whatever is left stays in inventory.
*/

package sim

// Settlement is the result of clearing available stock against demand.
type Settlement struct {
	Available int `json:"available"`
	Sold      int `json:"sold"`
	Remaining int `json:"remaining"`
}

// Settle sells min(available, demand) and carries the rest.
func Settle(carried, newOutput, demand int) Settlement {
	available := carried + newOutput
	sold := available
	if demand < sold {
		sold = demand
	}
	return Settlement{
		Available: available,
		Sold:      sold,
		Remaining: available - sold,
	}
}

// CalculateOTD is floor(sold/demand*100), or 100 when nothing has been demanded yet.
func CalculateOTD(sold, demand int) int {
	if demand <= 0 {
		return 100
	}
	otd := sold * 100 / demand
	switch {
	case otd < 0:
		return 0
	case otd > 100:
		return 100
	}
	return otd
}

// ledger tracks finished inventory and cumulative fulfilment.
type ledger struct {
	inventory        int
	cumulativeSold   int
	cumulativeDemand int
}

func (l *ledger) apply(output, demand int) Settlement {
	s := Settle(l.inventory, output, demand)
	l.inventory = s.Remaining
	l.cumulativeSold += s.Sold
	l.cumulativeDemand += demand
	return s
}

func (l *ledger) otd() int {
	return CalculateOTD(l.cumulativeSold, l.cumulativeDemand)
}
