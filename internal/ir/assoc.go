package ir

import "strings"

// AssocType is the cardinality of an association descriptor.
type AssocType string

const (
	BelongsTo AssocType = "BELONGS_TO"
	HasOne    AssocType = "HAS_ONE"
	HasMany   AssocType = "HAS_MANY"
	HasMore   AssocType = "HAS_MORE"
)

// ParseAssocType normalises a configured type name. BLS_TO is accepted as the
// short form of BELONGS_TO.
func ParseAssocType(s string) (AssocType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BELONGS_TO", "BLS_TO":
		return BelongsTo, true
	case "HAS_ONE":
		return HasOne, true
	case "HAS_MANY":
		return HasMany, true
	case "HAS_MORE":
		return HasMore, true
	}
	return AssocType(s), false
}

// ToMany reports whether the association yields a list per parent row.
func (t AssocType) ToMany() bool {
	return t == HasMany || t == HasMore
}

// JoinMode says how an association is resolved. The empty mode and MERGE are
// resolved by a deferred batch query; the rest become SQL joins.
type JoinMode string

const (
	JoinNone  JoinMode = ""
	JoinLeft  JoinMode = "LEFT"
	JoinRight JoinMode = "RIGHT"
	JoinFull  JoinMode = "FULL"
	JoinInner JoinMode = "INNER"
	JoinCross JoinMode = "CROSS"
	JoinMerge JoinMode = "MERGE"
)

// ParseJoinMode normalises a configured join mode. CROSS parses but is never
// accepted for associations.
func ParseJoinMode(s string) (JoinMode, bool) {
	m := JoinMode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case JoinNone, JoinLeft, JoinRight, JoinFull, JoinInner, JoinCross, JoinMerge:
		return m, true
	}
	return JoinMode(s), false
}

// IsJoin reports whether the mode renders as an SQL join.
func (m JoinMode) IsJoin() bool {
	switch m {
	case JoinLeft, JoinRight, JoinFull, JoinInner:
		return true
	}
	return false
}

// Assoc is a read-only association descriptor.
//
// Keys follow the owning side: for BELONGS_TO the foreign key lives on the
// parent and the primary key on the target; for HAS_* the foreign key lives on
// the target and the primary key on the parent. An empty PrimaryKey falls back
// to the relevant table's primary key.
type Assoc struct {
	Type       AssocType `json:"type"`
	Join       JoinMode  `json:"join,omitempty"`
	Name       string    `json:"name"`
	TableName  string    `json:"table,omitempty"`
	ForeignKey string    `json:"foreign_key,omitempty"`
	PrimaryKey string    `json:"primary_key,omitempty"`
	Assocs     []Assoc   `json:"assocs,omitempty"`

	Select  string `json:"select,omitempty"`
	OrderBy string `json:"order_by,omitempty"`
	Filter  string `json:"filter,omitempty"`
	GroupBy string `json:"group_by,omitempty"`
	Having  string `json:"having,omitempty"`
	Limit   int    `json:"limit,omitempty"`

	Unique []string `json:"unique,omitempty"`
	Convey []string `json:"convey,omitempty"`
}

// Target returns the table the association points at.
func (a Assoc) Target() string {
	if a.TableName != "" {
		return a.TableName
	}
	return a.Name
}

// HasOverrides reports whether any query override is set.
func (a Assoc) HasOverrides() bool {
	return a.Select != "" || a.OrderBy != "" || a.Filter != "" ||
		a.GroupBy != "" || a.Having != "" || a.Limit != 0
}
