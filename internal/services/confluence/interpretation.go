package confluence

// interpretationBucket maps a half-open composite score range to a
// human-readable template. The table replaces range branch trees so the
// mapping stays independently testable and editable.
type interpretationBucket struct {
	Min  float64 // inclusive
	Max  float64 // exclusive, except the last bucket
	Text string
}

var defaultBuckets = []interpretationBucket{
	{0, 20, "strong bearish confluence across components"},
	{20, 35, "bearish bias with broad component agreement"},
	{35, 45, "mild bearish lean, mixed component readings"},
	{45, 55, "balanced, no directional edge"},
	{55, 65, "mild bullish lean, mixed component readings"},
	{65, 80, "bullish bias with broad component agreement"},
	{80, 100, "strong bullish confluence across components"},
}

// Interpret looks the composite up in the bucket table. The input is
// already clamped to [0,100], so the lookup is total.
func Interpret(composite float64) string {
	for i, b := range defaultBuckets {
		last := i == len(defaultBuckets)-1
		if composite >= b.Min && (composite < b.Max || last) {
			return b.Text
		}
	}
	return defaultBuckets[len(defaultBuckets)/2].Text
}
