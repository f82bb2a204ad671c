package flat

import (
	"testing"

	"github.com/ValentinKolb/kvmodel/lib/db"
	dbtesting "github.com/ValentinKolb/kvmodel/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "FlatDB", func() db.KVDB {
		return NewFlatDB(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunKVDBTests(t, "FlatDB(1 shard)", func() db.KVDB {
		return NewFlatDB(&DBOptions{NumShards: 1})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "FlatDB", func() db.KVDB {
		return NewFlatDB(nil)
	})
}
