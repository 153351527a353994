package importer

import "encoding/base64"

const (
	// MaxBusPayload is the largest message the embedded NATS server accepts.
	MaxBusPayload int32 = 8 * 1024 * 1024

	// minBusPayload is the NATS default, kept for every other service.
	minBusPayload int32 = 1024 * 1024

	// payloadHeadroom covers the JSON envelope around the encoded photo.
	payloadHeadroom = 64 * 1024
)

// BusPayloadFor returns the bus payload limit needed to carry a scan-photo
// request for a photo of maxPhoto bytes. Photos are base64 encoded in the
// JSON request. The result never drops below the NATS default and never
// exceeds MaxBusPayload.
func BusPayloadFor(maxPhoto int64) int32 {
	if maxPhoto <= 0 {
		return minBusPayload
	}
	if maxPhoto >= MaxPhotoSize(MaxBusPayload) {
		return MaxBusPayload
	}
	n := int32(base64.StdEncoding.EncodedLen(int(maxPhoto)) + payloadHeadroom)
	if n < minBusPayload {
		return minBusPayload
	}
	return n
}

// MaxPhotoSize returns the largest photo a scan-photo request fits in a bus
// message of payload bytes.
func MaxPhotoSize(payload int32) int64 {
	n := int(payload) - payloadHeadroom
	if n <= 0 {
		return 0
	}
	return int64(base64.StdEncoding.DecodedLen(n))
}
