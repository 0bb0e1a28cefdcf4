package events

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/google/uuid"
)

// ErrDecode - сообщение из очереди не удалось разобрать; такие события только логируются и выбрасываются
var ErrDecode = errors.New("malformed event")

// data:image/png;base64, и подобные префиксы от браузерных клиентов
var dataURIPrefix = regexp.MustCompile(`^data:[\w.+-]+/[\w.+-]+;base64,`)

// EnvelopeOverhead - запас под поля конверта, имя файла и служебные байты kafka-сообщения
const EnvelopeOverhead = 8 << 10

// MaxRawBytes - наибольший исходный файл, CREATE с которым после base64 уложится в maxMessageBytes
func MaxRawBytes(maxMessageBytes int64) int64 {
	if maxMessageBytes <= EnvelopeOverhead {
		return 0
	}
	return int64(base64.StdEncoding.DecodedLen(int(maxMessageBytes - EnvelopeOverhead)))
}

type envelope struct {
	Version    int             `json:"version,omitempty"`
	EventID    string          `json:"event_id,omitempty"`
	OccurredAt string          `json:"occurred_at,omitempty"`
	Attempt    int             `json:"attempt,omitempty"`
	EventType  Kind            `json:"event_type"`
	Data       json.RawMessage `json:"data"`
}

type uploadData struct {
	UserID   *int64  `json:"user_id"`
	Title    *string `json:"title"`
	FileData *string `json:"file_data"`
}

type updateData struct {
	ImageID *int64            `json:"image_id"`
	UserID  *int64            `json:"user_id"`
	NewData *model.ImagePatch `json:"new_data"`
}

type deleteData struct {
	ImageID *int64 `json:"image_id"`
	UserID  *int64 `json:"user_id"`
}

// Encode - сериализует событие в JSON-конверт для очереди
func Encode(e *MutationEvent) ([]byte, error) {
	if e == nil {
		return nil, errors.New("nil event provided to Encode")
	}

	env := envelope{
		Version:   e.Version,
		Attempt:   e.Attempt,
		EventType: e.Kind,
	}
	if e.ID != uuid.Nil {
		env.EventID = e.ID.String()
	}
	if !e.OccurredAt.IsZero() {
		env.OccurredAt = e.OccurredAt.UTC().Format(time.RFC3339Nano)
	}

	var data any
	switch e.Kind {
	case KindCreate:
		if e.Create == nil {
			return nil, fmt.Errorf("%s event without payload", e.Kind)
		}
		encoded := base64.StdEncoding.EncodeToString(e.Create.RawBytes)
		data = uploadData{
			UserID:   &e.Create.OwnerID,
			Title:    &e.Create.Filename,
			FileData: &encoded,
		}
	case KindUpdate:
		if e.Update == nil {
			return nil, fmt.Errorf("%s event without payload", e.Kind)
		}
		data = updateData{
			ImageID: &e.Update.RecordID,
			UserID:  &e.Update.OwnerID,
			NewData: &e.Update.Changes,
		}
	case KindDelete:
		if e.Delete == nil {
			return nil, fmt.Errorf("%s event without payload", e.Kind)
		}
		data = deleteData{
			ImageID: &e.Delete.RecordID,
			UserID:  &e.Delete.OwnerID,
		}
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Kind, err)
	}
	env.Data = raw

	return json.Marshal(env)
}

// Decode - разбирает сообщение из очереди; любая ошибка оборачивает ErrDecode
func Decode(b []byte) (*MutationEvent, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if env.Version > CurrentVersion || env.Version < 0 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrDecode, env.Version)
	}
	if !KindsMap[env.EventType] {
		return nil, fmt.Errorf("%w: unknown event_type %q", ErrDecode, env.EventType)
	}
	if env.Attempt < 0 {
		return nil, fmt.Errorf("%w: negative attempt", ErrDecode)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data", ErrDecode)
	}

	e := &MutationEvent{
		Version: env.Version,
		Attempt: env.Attempt,
		Kind:    env.EventType,
	}
	if env.EventID != "" {
		id, err := uuid.Parse(env.EventID)
		if err != nil {
			return nil, fmt.Errorf("%w: event_id: %v", ErrDecode, err)
		}
		e.ID = id
	}
	if env.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339Nano, env.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("%w: occurred_at: %v", ErrDecode, err)
		}
		e.OccurredAt = t.UTC()
	}

	var err error
	switch e.Kind {
	case KindCreate:
		e.Create, err = decodeUpload(env.Data)
	case KindUpdate:
		e.Update, err = decodeUpdate(env.Data)
	case KindDelete:
		e.Delete, err = decodeDelete(env.Data)
	}
	if err != nil {
		return nil, err
	}

	return e, nil
}

func decodeUpload(raw json.RawMessage) (*CreatePayload, error) {
	var d uploadData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: UPLOAD data: %v", ErrDecode, err)
	}
	switch {
	case d.UserID == nil:
		return nil, fmt.Errorf("%w: UPLOAD without user_id", ErrDecode)
	case d.Title == nil || *d.Title == "":
		return nil, fmt.Errorf("%w: UPLOAD without title", ErrDecode)
	case d.FileData == nil:
		return nil, fmt.Errorf("%w: UPLOAD without file_data", ErrDecode)
	}

	payload := dataURIPrefix.ReplaceAllString(*d.FileData, "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: file_data is not valid base64: %v", ErrDecode, err)
	}

	return &CreatePayload{OwnerID: *d.UserID, Filename: *d.Title, RawBytes: data}, nil
}

func decodeUpdate(raw json.RawMessage) (*UpdatePayload, error) {
	var d updateData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: UPDATE data: %v", ErrDecode, err)
	}
	switch {
	case d.ImageID == nil:
		return nil, fmt.Errorf("%w: UPDATE without image_id", ErrDecode)
	case d.UserID == nil:
		return nil, fmt.Errorf("%w: UPDATE without user_id", ErrDecode)
	case d.NewData == nil:
		return nil, fmt.Errorf("%w: UPDATE without new_data", ErrDecode)
	}

	return &UpdatePayload{RecordID: *d.ImageID, OwnerID: *d.UserID, Changes: *d.NewData}, nil
}

func decodeDelete(raw json.RawMessage) (*DeletePayload, error) {
	var d deleteData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: DELETE data: %v", ErrDecode, err)
	}
	switch {
	case d.ImageID == nil:
		return nil, fmt.Errorf("%w: DELETE without image_id", ErrDecode)
	case d.UserID == nil:
		return nil, fmt.Errorf("%w: DELETE without user_id", ErrDecode)
	}

	return &DeletePayload{RecordID: *d.ImageID, OwnerID: *d.UserID}, nil
}
