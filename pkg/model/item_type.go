package model

import "strconv"

//go:generate go run github.com/dmarkham/enumer -type ItemType -trimprefix ItemType -transform upper -json -yaml -output item_type.gen.go

// ItemType is the category of an item. It partitions visibility grants and
// broadcast topics.
type ItemType int

const (
	ItemTypeBoo ItemType = iota + 1
	ItemTypeFoo
	ItemTypeBar
	ItemTypeBaz
)

// Topic returns the broadcast topic items of this type publish to.
func (t ItemType) Topic() string {
	return "type-" + strconv.Itoa(int(t))
}
