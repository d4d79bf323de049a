package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates that Rekognition rejected the encoded image
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrImageTooLarge indicates that the encoded image exceeds the API limit
	ErrImageTooLarge = errors.New("image exceeds rekognition size limit")
)
