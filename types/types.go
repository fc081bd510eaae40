// Package types declares the primitive beacon-chain types shared across the
// indexer. They are plain integer aliases so they scan directly from sqlx
// and parse directly from the REST API's decimal strings.
package types

// Slot is a beacon chain slot number.
type Slot uint64

// Epoch is a beacon chain epoch number.
type Epoch uint64

// ValidatorIndex is the registry index of a validator.
type ValidatorIndex uint64

// CommitteeIndex identifies a committee within a slot.
type CommitteeIndex uint64

// Gwei is an amount in gwei. It is signed because Altair reward components
// (notably inactivity and late-head penalties) can be negative.
type Gwei int64
