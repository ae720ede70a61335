package lifecycle

// Line is one settled item: catalog points per unit and weighed quantity.
type Line struct {
	Points   int
	Quantity int
}

// SettlementTotal returns Σ(points × quantity) − fee. The result may be
// zero or negative; callers credit only a positive total.
func SettlementTotal(lines []Line, fee int) int {
	total := 0
	for _, l := range lines {
		total += l.Points * l.Quantity
	}
	return total - fee
}
