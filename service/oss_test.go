package service_test

import (
	"testing"

	"storyboard-server/service"

	"github.com/stretchr/testify/assert"
)

func TestParseDataURI(t *testing.T) {
	mime, data, ok := service.ParseDataURI("data:image/png;base64,aGVsbG8=")
	assert.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte("hello"), data)

	_, _, ok = service.ParseDataURI("https://picsum.photos/480/270")
	assert.False(t, ok)
	_, _, ok = service.ParseDataURI("data:text/plain,hello")
	assert.False(t, ok)
	_, _, ok = service.ParseDataURI("data:image/png;base64,@@@")
	assert.False(t, ok)
}

func TestObjectNaming(t *testing.T) {
	name := service.ObjectName("storyboard-1", "shot-9", "image")
	assert.Equal(t, "projects/storyboard-1/shots/shot-9/image", name)
	assert.Equal(t, "https://media.example.com/frames/"+name+".png",
		service.PublicURL("https://media.example.com/", "frames", name+".png"))

	assert.Equal(t, "image/jpeg", service.ContentTypeFor(name+".JPG"))
	assert.Equal(t, "video/mp4", service.ContentTypeFor(name+".mp4"))
	assert.Equal(t, "application/octet-stream", service.ContentTypeFor(name))
}
