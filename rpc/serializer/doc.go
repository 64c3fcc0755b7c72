// Package serializer turns lock frames (common.Message) into bytes and back.
// The lock cache itself never encodes anything; serializers sit between a
// participant and whatever transport carries its frames.
//
// Implementations:
//
//   - Binary: a 3 byte header (frame type, presence flags) followed by the present
//     fields only. Exchange context lists are a count followed by fixed layout
//     entries. Truncated frames fail with ErrShortFrame. Smallest and fastest.
//
//   - JSON: readable frames, the same format replay scripts are written in.
//
//   - GOB: Go's self describing gob format. Works, but every frame carries its type
//     description and is therefore the largest of the three.
//
// All serializers are stateless and safe for concurrent use. Deserialize always
// starts from an empty message, so a message value can be reused between frames.
//
// Usage:
//
//	s, ok := serializer.FromName("binary")
//	data, err := s.Serialize(*common.NewRecallMessage("orders", lockmgr.ServerWrite, 0))
//	var frame common.Message
//	err = s.Deserialize(data, &frame)
package serializer
