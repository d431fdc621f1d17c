package service

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInvalidRoomID  = errors.New("invalid room id")
	ErrInternalServer = errors.New("internal server error")
)
