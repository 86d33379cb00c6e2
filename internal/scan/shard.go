package scan

// Shard varies which listing each humanized account reads so serialized
// accounts do not hammer the same feed page.
type Shard struct {
	Sort       string
	TimeRange  string
	PageOffset int
}

const maxPageOffset = 3

var defaultShards = []Shard{
	{Sort: "new"},
	{Sort: "top", TimeRange: "day"},
	{Sort: "top", TimeRange: "week"},
	{Sort: "top", TimeRange: "month"},
	{Sort: "top", TimeRange: "year"},
	{Sort: "top", TimeRange: "all"},
	{Sort: "hot"},
	{Sort: "rising"},
}

// ComputeShard assigns a shard by account index. A single account always
// reads /new.
func ComputeShard(index, total int) Shard {
	if total <= 1 {
		return Shard{Sort: "new"}
	}

	shard := defaultShards[index%len(defaultShards)]
	shard.PageOffset = index
	if shard.PageOffset > maxPageOffset {
		shard.PageOffset = maxPageOffset
	}
	return shard
}
