// Package clickpb implements wire-compatible Protocol Buffers v3 encoding
// for the game's wire messages, without a protoc/generated-code step.
// Field numbers and wire types follow these schemas:
//
//	message Click                { int32 tile_id=1; string country_id=2; uint64 timestamp_ns=3; string click_id=4; }
//	message ClickRequest         { int32 tile_id=1; string country_id=2; }
//	message ClickResponse        { uint64 timestamp_ns=1; string click_id=2; }
//	message BatchRequest         { int32 start_tile_id=1; int32 end_tile_id=2; }
//	message Ownership            { uint32 tile_id=1; string country_id=2; uint64 timestamp_ns=3; }
//	message OwnershipState       { repeated Ownership ownerships=1; }
//	message UpdateNotification   { int32 tile_id=1; string country_id=2; string previous_country_id=3; }
//	message LeaderboardEntry     { string country_id=1; uint32 score=2; }
//	message LeaderboardResponse  { repeated LeaderboardEntry entries=1; }
package clickpb

import (
	"fmt"

	"github.com/clickplanet/clickplanet/internal/model"
)

const (
	wireVarint = 0
	wireBytes  = 2
)

func tagByte(fieldNum int, wireType int) byte {
	return byte(fieldNum<<3 | wireType)
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// appendInt32 matches protobuf's actual wire behavior for the `int32` type:
// negative values are sign-extended to 64 bits before varint encoding.
func appendInt32(buf []byte, v int32) []byte {
	return appendVarint(buf, uint64(int64(v)))
}

func appendString(buf []byte, fieldNum int, s string) []byte {
	if s == "" {
		return buf
	}
	buf = append(buf, tagByte(fieldNum, wireBytes))
	buf = appendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendVarintField(buf []byte, fieldNum int, v uint64) []byte {
	if v == 0 {
		return buf
	}
	buf = append(buf, tagByte(fieldNum, wireVarint))
	return appendVarint(buf, v)
}

func appendInt32Field(buf []byte, fieldNum int, v int32) []byte {
	if v == 0 {
		return buf
	}
	buf = append(buf, tagByte(fieldNum, wireVarint))
	return appendInt32(buf, v)
}

func appendMessageField(buf []byte, fieldNum int, msg []byte) []byte {
	buf = append(buf, tagByte(fieldNum, wireBytes))
	buf = appendVarint(buf, uint64(len(msg)))
	return append(buf, msg...)
}

// decodeFields walks the wire-format message, invoking fn for every field.
// fn receives the raw payload appropriate to wireType: for wireVarint the
// decoded value is in data as a single varint-sized slice; for wireBytes
// data is the length-delimited payload itself.
func decodeFields(buf []byte, fn func(fieldNum, wireType int, payload []byte) error) error {
	for len(buf) > 0 {
		tag, n := decodeVarint(buf)
		if n <= 0 {
			return fmt.Errorf("clickpb: malformed tag")
		}
		buf = buf[n:]
		fieldNum := int(tag >> 3)
		wireType := int(tag & 0x7)

		switch wireType {
		case wireVarint:
			v, n := decodeVarint(buf)
			if n <= 0 {
				return fmt.Errorf("clickpb: malformed varint field %d", fieldNum)
			}
			payload := appendVarint(nil, v)
			buf = buf[n:]
			if err := fn(fieldNum, wireType, payload); err != nil {
				return err
			}
		case wireBytes:
			length, n := decodeVarint(buf)
			if n <= 0 {
				return fmt.Errorf("clickpb: malformed length field %d", fieldNum)
			}
			buf = buf[n:]
			if uint64(len(buf)) < length {
				return fmt.Errorf("clickpb: truncated field %d", fieldNum)
			}
			payload := buf[:length]
			buf = buf[length:]
			if err := fn(fieldNum, wireType, payload); err != nil {
				return err
			}
		default:
			return fmt.Errorf("clickpb: unsupported wire type %d on field %d", wireType, fieldNum)
		}
	}
	return nil
}

func decodeVarint(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
		if shift >= 64 {
			return 0, -1
		}
	}
	return 0, -1
}

func varintFieldToUint64(payload []byte) uint64 {
	v, _ := decodeVarint(payload)
	return v
}

func varintFieldToInt32(payload []byte) int32 {
	v, _ := decodeVarint(payload)
	return int32(int64(v))
}

// --- ClickRequest ---

func MarshalClickRequest(r model.ClickRequest) []byte {
	var buf []byte
	buf = appendInt32Field(buf, 1, r.TileID)
	buf = appendString(buf, 2, r.CountryID)
	return buf
}

func UnmarshalClickRequest(buf []byte) (model.ClickRequest, error) {
	var r model.ClickRequest
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			r.TileID = varintFieldToInt32(payload)
		case 2:
			r.CountryID = string(payload)
		}
		return nil
	})
	return r, err
}

// --- ClickResponse ---

func MarshalClickResponse(r model.ClickResponse) []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, r.TimestampNs)
	buf = appendString(buf, 2, r.ClickID)
	return buf
}

func UnmarshalClickResponse(buf []byte) (model.ClickResponse, error) {
	var r model.ClickResponse
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			r.TimestampNs = varintFieldToUint64(payload)
		case 2:
			r.ClickID = string(payload)
		}
		return nil
	})
	return r, err
}

// --- Click ---

func MarshalClick(c model.Click) []byte {
	var buf []byte
	buf = appendInt32Field(buf, 1, c.TileID)
	buf = appendString(buf, 2, c.CountryID)
	buf = appendVarintField(buf, 3, c.TimestampNs)
	buf = appendString(buf, 4, c.ClickID)
	return buf
}

func UnmarshalClick(buf []byte) (model.Click, error) {
	var c model.Click
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			c.TileID = varintFieldToInt32(payload)
		case 2:
			c.CountryID = string(payload)
		case 3:
			c.TimestampNs = varintFieldToUint64(payload)
		case 4:
			c.ClickID = string(payload)
		}
		return nil
	})
	return c, err
}

// --- BatchRequest ---

func MarshalBatchRequest(r model.BatchRequest) []byte {
	var buf []byte
	buf = appendInt32Field(buf, 1, r.StartTileID)
	buf = appendInt32Field(buf, 2, r.EndTileID)
	return buf
}

func UnmarshalBatchRequest(buf []byte) (model.BatchRequest, error) {
	var r model.BatchRequest
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			r.StartTileID = varintFieldToInt32(payload)
		case 2:
			r.EndTileID = varintFieldToInt32(payload)
		}
		return nil
	})
	return r, err
}

// --- Ownership ---

func MarshalOwnership(o model.Ownership) []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uint64(uint32(o.TileID)))
	buf = appendString(buf, 2, o.CountryID)
	buf = appendVarintField(buf, 3, o.TimestampNs)
	return buf
}

func UnmarshalOwnership(buf []byte) (model.Ownership, error) {
	var o model.Ownership
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			o.TileID = int32(uint32(varintFieldToUint64(payload)))
		case 2:
			o.CountryID = string(payload)
		case 3:
			o.TimestampNs = varintFieldToUint64(payload)
		}
		return nil
	})
	return o, err
}

// --- OwnershipState ---

func MarshalOwnershipState(ownerships []model.Ownership) []byte {
	var buf []byte
	for _, o := range ownerships {
		buf = appendMessageField(buf, 1, MarshalOwnership(o))
	}
	return buf
}

func UnmarshalOwnershipState(buf []byte) ([]model.Ownership, error) {
	var result []model.Ownership
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		if fieldNum != 1 {
			return nil
		}
		o, err := UnmarshalOwnership(payload)
		if err != nil {
			return err
		}
		result = append(result, o)
		return nil
	})
	return result, err
}

// --- UpdateNotification ---

func MarshalUpdateNotification(n model.UpdateNotification) []byte {
	var buf []byte
	buf = appendInt32Field(buf, 1, n.TileID)
	buf = appendString(buf, 2, n.CountryID)
	buf = appendString(buf, 3, n.PreviousCountryID)
	return buf
}

func UnmarshalUpdateNotification(buf []byte) (model.UpdateNotification, error) {
	var n model.UpdateNotification
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			n.TileID = varintFieldToInt32(payload)
		case 2:
			n.CountryID = string(payload)
		case 3:
			n.PreviousCountryID = string(payload)
		}
		return nil
	})
	return n, err
}

// --- LeaderboardEntry / LeaderboardResponse ---

func MarshalLeaderboardEntry(e model.LeaderboardEntry) []byte {
	var buf []byte
	buf = appendString(buf, 1, e.CountryID)
	buf = appendVarintField(buf, 2, uint64(e.Score))
	return buf
}

func UnmarshalLeaderboardEntry(buf []byte) (model.LeaderboardEntry, error) {
	var e model.LeaderboardEntry
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		switch fieldNum {
		case 1:
			e.CountryID = string(payload)
		case 2:
			e.Score = uint32(varintFieldToUint64(payload))
		}
		return nil
	})
	return e, err
}

func MarshalLeaderboardResponse(entries []model.LeaderboardEntry) []byte {
	var buf []byte
	for _, e := range entries {
		buf = appendMessageField(buf, 1, MarshalLeaderboardEntry(e))
	}
	return buf
}

func UnmarshalLeaderboardResponse(buf []byte) ([]model.LeaderboardEntry, error) {
	var result []model.LeaderboardEntry
	err := decodeFields(buf, func(fieldNum, wireType int, payload []byte) error {
		if fieldNum != 1 {
			return nil
		}
		e, err := UnmarshalLeaderboardEntry(payload)
		if err != nil {
			return err
		}
		result = append(result, e)
		return nil
	})
	return result, err
}
