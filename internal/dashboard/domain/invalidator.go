package domain

import "github.com/bwmarrin/snowflake"

// Invalidator drops cached read models of a company after a mutation.
type Invalidator interface {
	Invalidate(companyID snowflake.ID)
}
