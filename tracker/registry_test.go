package tracker

import (
	"testing"
	"time"

	"github.com/banky/hyperliquid-exchange/types"
	"github.com/maxatome/go-testdeep/td"
)

func TestRegistryTTL(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	r := NewRegistry(time.Minute)
	r.now = func() time.Time { return now }

	a := types.HexToCloid("0x00000000000000000000000000000001")
	b := types.HexToCloid("0x00000000000000000000000000000002")

	r.Put(a, 11)
	now = now.Add(30 * time.Second)
	r.Put(b, 22)

	oid, ok := r.Lookup(a)
	td.Cmp(t, ok, true)
	td.Cmp(t, oid, int64(11))

	now = now.Add(45 * time.Second)
	_, ok = r.Lookup(a)
	td.Cmp(t, ok, false, "expired")
	td.Cmp(t, r.Len(), 1)

	now = now.Add(time.Minute)
	td.Cmp(t, r.Prune(), 1)
	td.Cmp(t, r.Len(), 0)
}

func TestRegistryZeroTTLKeepsEntries(t *testing.T) {
	now := time.Now()
	r := NewRegistry(0)
	r.now = func() time.Time { return now }

	c := types.NewCloid()
	r.Put(c, 5)
	now = now.Add(24 * time.Hour)

	td.Cmp(t, r.Prune(), 0)
	oid, ok := r.Lookup(c)
	td.Cmp(t, ok, true)
	td.Cmp(t, oid, int64(5))
}
