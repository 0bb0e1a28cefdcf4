package events

import (
	"encoding/base64"
	"testing"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	title := "renamed.png"
	res := "640x480"
	size := int64(1024)

	tests := []struct {
		name  string
		event *MutationEvent
	}{
		{"create", NewCreate(1, "a.png", []byte{0x89, 'P', 'N', 'G', 0, 1, 2})},
		{"create empty bytes", NewCreate(7, "empty.gif", []byte{})},
		{"update all fields", NewUpdate(10, 1, model.ImagePatch{Title: &title, Resolution: &res, Size: &size})},
		{"update single field", NewUpdate(10, 1, model.ImagePatch{Title: &title})},
		{"update no fields", NewUpdate(10, 1, model.ImagePatch{})},
		{"delete", NewDelete(42, 3)},
		{"redelivered", func() *MutationEvent { e := NewDelete(42, 3); e.Attempt = 2; return e }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := Encode(tt.event)
			require.NoError(t, err)

			decoded, err := Decode(first)
			require.NoError(t, err)

			second, err := Encode(decoded)
			require.NoError(t, err)
			require.Equal(t, string(first), string(second))

			require.Equal(t, tt.event.Kind, decoded.Kind)
			require.Equal(t, tt.event.ID, decoded.ID)
			require.Equal(t, tt.event.Attempt, decoded.Attempt)
			require.True(t, tt.event.OccurredAt.Equal(decoded.OccurredAt))
			require.Equal(t, tt.event.OwnerID(), decoded.OwnerID())
			require.Equal(t, tt.event.RecordID(), decoded.RecordID())
			require.Equal(t, tt.event.Update, decoded.Update)
			require.Equal(t, tt.event.Delete, decoded.Delete)
		})
	}
}

func TestEncode_WireShape(t *testing.T) {
	e := NewDelete(5, 9)
	b, err := Encode(e)
	require.NoError(t, err)

	require.Contains(t, string(b), `"event_type":"DELETE"`)
	require.Contains(t, string(b), `"data":{"image_id":5,"user_id":9}`)
	require.Contains(t, string(b), `"version":1`)
}

func TestEncode_Invalid(t *testing.T) {
	_, err := Encode(nil)
	require.Error(t, err)

	_, err = Encode(&MutationEvent{Kind: KindCreate})
	require.Error(t, err)

	_, err = Encode(&MutationEvent{Kind: "RENAME"})
	require.Error(t, err)
}

func TestDecode_LegacyMessageWithDataURI(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	body := `{"event_type":"UPLOAD","data":{"user_id":1,"title":"test_image.png","file_data":"data:image/png;base64,` +
		base64.StdEncoding.EncodeToString(raw) + `"}}`

	e, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Equal(t, KindCreate, e.Kind)
	require.Equal(t, 0, e.Version)
	require.True(t, e.OccurredAt.IsZero())
	require.Equal(t, int64(1), e.Create.OwnerID)
	require.Equal(t, "test_image.png", e.Create.Filename)
	require.Equal(t, raw, e.Create.RawBytes)
}

func TestDecode_UpdateOnlySetFields(t *testing.T) {
	body := `{"event_type":"UPDATE","data":{"image_id":3,"user_id":1,"new_data":{"title":"x"}}}`

	e, err := Decode([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, e.Update.Changes.Title)
	require.Equal(t, "x", *e.Update.Changes.Title)
	require.Nil(t, e.Update.Changes.Resolution)
	require.Nil(t, e.Update.Changes.Size)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `UPLOAD,12`},
		{"unknown kind", `{"event_type":"RENAME","data":{"image_id":1,"user_id":1}}`},
		{"missing kind", `{"data":{"image_id":1,"user_id":1}}`},
		{"future version", `{"version":2,"event_type":"DELETE","data":{"image_id":1,"user_id":1}}`},
		{"missing data", `{"event_type":"DELETE"}`},
		{"null data", `{"event_type":"DELETE","data":null}`},
		{"bad event id", `{"event_id":"nope","event_type":"DELETE","data":{"image_id":1,"user_id":1}}`},
		{"bad occurred_at", `{"occurred_at":"yesterday","event_type":"DELETE","data":{"image_id":1,"user_id":1}}`},
		{"upload without owner", `{"event_type":"UPLOAD","data":{"title":"a.png","file_data":""}}`},
		{"upload without title", `{"event_type":"UPLOAD","data":{"user_id":1,"file_data":""}}`},
		{"upload without file", `{"event_type":"UPLOAD","data":{"user_id":1,"title":"a.png"}}`},
		{"upload bad base64", `{"event_type":"UPLOAD","data":{"user_id":1,"title":"a.png","file_data":"data:image/png;base64,example_base64_string"}}`},
		{"update without id", `{"event_type":"UPDATE","data":{"user_id":1,"new_data":{}}}`},
		{"update without owner", `{"event_type":"UPDATE","data":{"image_id":1,"new_data":{}}}`},
		{"update without changes", `{"event_type":"UPDATE","data":{"image_id":1,"user_id":1}}`},
		{"update wrong types", `{"event_type":"UPDATE","data":{"image_id":"one","user_id":1,"new_data":{}}}`},
		{"delete without id", `{"event_type":"DELETE","data":{"user_id":1}}`},
		{"delete without owner", `{"event_type":"DELETE","data":{"image_id":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}
