// internal/app/system/limits/limits.go
package limits

// Request and upload size limits.
const (
	// MaxJSONBody caps JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxUploadFileSize caps each uploaded media file.
	MaxUploadFileSize = 50 << 20 // 50 MB

	// MaxMultipartMemory is held in memory while parsing; larger parts
	// spill to temporary files.
	MaxMultipartMemory = 32 << 20 // 32 MB

	// MaxThumbnails is the number of files accepted in the thumbnail field.
	MaxThumbnails = 1

	// MaxMediaFiles is the number of files accepted in the mediaFiles field.
	MaxMediaFiles = 10

	// SearchPageSize caps course search results.
	SearchPageSize = 10
)

// MaxMultipartBody bounds a whole multipart request: one thumbnail, the
// media files and some room for text fields.
const MaxMultipartBody = (MaxThumbnails+MaxMediaFiles)*MaxUploadFileSize + MaxJSONBody
