package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"  photo.jpg  ", "photo.jpg"},
		{"uploads/2024/photo.jpg", "photo.jpg"},
		{`C:\Users\me\photo.jpg`, "photo.jpg"},
		{"  nested/dir/photo.jpg  ", "photo.jpg"},
		{"", ""},
		{"   ", ""},
		{"trailing/", ""},
		{"no-extension", "no-extension"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestSizeToBytes(t *testing.T) {
	assert.Equal(t, int64(25<<20), SizeToBytes("25MB", 0))
	assert.Equal(t, int64(25<<20), SizeToBytes("25 mb", 0))
	assert.Equal(t, int64(512), SizeToBytes("512", 0))
	assert.Equal(t, int64(512), SizeToBytes("512B", 0))
	assert.Equal(t, int64(2<<30), SizeToBytes("2GB", 0))

	assert.Equal(t, int64(99), SizeToBytes("", 99))
	assert.Equal(t, int64(99), SizeToBytes("twelve", 99))
	assert.Equal(t, int64(99), SizeToBytes("5XB", 99))
	assert.Equal(t, int64(99), SizeToBytes("-5MB", 99))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 50, ParseInt("50", 20, 1, 200))
	assert.Equal(t, 20, ParseInt("", 20, 1, 200))
	assert.Equal(t, 20, ParseInt("abc", 20, 1, 200))
	assert.Equal(t, 200, ParseInt("999", 20, 1, 200))
	assert.Equal(t, 1, ParseInt("-3", 20, 1, 200))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "25.00 MB", FormatBytes(25<<20))
}
