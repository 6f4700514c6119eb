package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// UUID generates a UUID v4 (random).
func UUID() string {
	return uuid.NewString()
}

// Numeric generates a snowflake id as a decimal string. Ids are unique within
// the process and increase over time, so they match `\d+` route patterns.
func Numeric() string {
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			// Only fails for node numbers outside the 10-bit range.
			panic(err)
		}
		node = n
	})
	return node.Generate().String()
}
