package serializer

import (
	"sort"
	"testing"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
)

// holds returns n retained holds of one lock
func holds(n int) []lockmgr.ExchangeContext {
	contexts := make([]lockmgr.ExchangeContext, n)
	for i := range contexts {
		contexts[i] = lockmgr.ExchangeContext{
			LockID:        "benchmark-lock",
			ParticipantID: 7,
			ThreadID:      lockmgr.ThreadID(i),
			State:         lockmgr.HolderRead,
		}
	}
	return contexts
}

// benchmarkFrames are the frames a participant exchanges most, plus a large resync
var benchmarkFrames = map[string]common.Message{
	"Ack":          *common.NewSuccessResponse(),
	"Request":      *common.NewRequestMessage("orders/4711", 7, lockmgr.ServerWrite),
	"Award":        *common.NewAwardMessage("orders/4711", lockmgr.ServerRead),
	"Recall":       *common.NewRecallMessage("orders/4711", lockmgr.ServerWrite, 5),
	"Commit1":      *common.NewRecallCommitMessage("orders/4711", 7, holds(1)),
	"Commit256":    *common.NewRecallCommitMessage("orders/4711", 7, holds(256)),
	"Resync4096":   *common.NewResyncResponse(7, holds(4096), nil),
	"ErrorMessage": *common.NewErrorResponse("lockmgr: illegal transition: recall committed on FREE"),
}

// frameNames returns the frame names in a stable order
func frameNames() []string {
	names := make([]string, 0, len(benchmarkFrames))
	for name := range benchmarkFrames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BenchmarkSerializers encodes and decodes every frame with every serializer
// and reports the encoded size.
func BenchmarkSerializers(b *testing.B) {
	for serializerName, factory := range testSerializers {
		s := factory()

		for _, frameName := range frameNames() {
			frame := benchmarkFrames[frameName]
			data, err := s.Serialize(frame)
			if err != nil {
				b.Fatalf("Serialize(%s) error = %v", frameName, err)
			}

			b.Run(serializerName+"/encode/"+frameName, func(b *testing.B) {
				b.ReportAllocs()
				b.ReportMetric(float64(len(data)), "bytes")
				for i := 0; i < b.N; i++ {
					if _, err := s.Serialize(frame); err != nil {
						b.Fatal(err)
					}
				}
			})

			b.Run(serializerName+"/decode/"+frameName, func(b *testing.B) {
				b.ReportAllocs()
				var msg common.Message
				for i := 0; i < b.N; i++ {
					if err := s.Deserialize(data, &msg); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
