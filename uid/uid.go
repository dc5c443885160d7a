// Package uid generates unique identifiers for database records. IDs are
// snowflake IDs, so they sort roughly by creation time.
package uid

import (
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ID snowflake.ID

var idGen *snowflake.Node

func init() {
	snowflake.Epoch = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	var err error
	//nolint:gosec // the node ID does not need to be cryptographically random
	idGen, err = snowflake.NewNode(rand.Int63n(1024))
	if err != nil {
		panic(err)
	}
}

// New returns an ID using a random node ID. The node ID is selected when the
// process starts, and won't change until the process is restarted.
func New() ID {
	return ID(idGen.Generate())
}

func (u ID) String() string {
	return snowflake.ID(u).Base58()
}

func (u *ID) UnmarshalText(b []byte) error {
	id, err := snowflake.ParseBase58(b)
	if err != nil {
		return err
	}
	*u = ID(id)
	return nil
}

func (u ID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func Parse(b []byte) (ID, error) {
	id, err := snowflake.ParseBase58(b)
	return ID(id), err
}
