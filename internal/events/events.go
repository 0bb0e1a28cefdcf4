// Package events describes image mutation events and their queue wire format
package events

import (
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/google/uuid"
)

type Kind string

const (
	KindCreate Kind = "UPLOAD"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

var KindsMap = map[Kind]bool{
	KindCreate: true,
	KindUpdate: true,
	KindDelete: true,
}

// CurrentVersion - версия формата конверта, которую пишет Encode
const CurrentVersion = 1

// MutationEvent - одно запрошенное изменение; заполнен ровно один payload в зависимости от Kind
type MutationEvent struct {
	Version    int
	ID         uuid.UUID
	OccurredAt time.Time
	Attempt    int
	Kind       Kind

	Create *CreatePayload
	Update *UpdatePayload
	Delete *DeletePayload
}

type CreatePayload struct {
	OwnerID  int64
	Filename string
	RawBytes []byte
}

type UpdatePayload struct {
	RecordID int64
	OwnerID  int64
	Changes  model.ImagePatch
}

type DeletePayload struct {
	RecordID int64
	OwnerID  int64
}

func newEvent(kind Kind) *MutationEvent {
	return &MutationEvent{
		Version:    CurrentVersion,
		ID:         uuid.New(),
		OccurredAt: time.Now().UTC(),
		Kind:       kind,
	}
}

func NewCreate(ownerID int64, filename string, raw []byte) *MutationEvent {
	e := newEvent(KindCreate)
	e.Create = &CreatePayload{OwnerID: ownerID, Filename: filename, RawBytes: raw}
	return e
}

func NewUpdate(recordID, ownerID int64, changes model.ImagePatch) *MutationEvent {
	e := newEvent(KindUpdate)
	e.Update = &UpdatePayload{RecordID: recordID, OwnerID: ownerID, Changes: changes}
	return e
}

func NewDelete(recordID, ownerID int64) *MutationEvent {
	e := newEvent(KindDelete)
	e.Delete = &DeletePayload{RecordID: recordID, OwnerID: ownerID}
	return e
}

// OwnerID - пользователь, чьи права проверялись при публикации
func (e *MutationEvent) OwnerID() int64 {
	switch {
	case e.Create != nil:
		return e.Create.OwnerID
	case e.Update != nil:
		return e.Update.OwnerID
	case e.Delete != nil:
		return e.Delete.OwnerID
	}
	return 0
}

// RecordID - 0 для CREATE, id записи еще не существует
func (e *MutationEvent) RecordID() int64 {
	switch {
	case e.Update != nil:
		return e.Update.RecordID
	case e.Delete != nil:
		return e.Delete.RecordID
	}
	return 0
}
