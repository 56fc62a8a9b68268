package io

import "errors"

// ErrFrameTooLarge is returned by ReadVarBytes when the declared length
// exceeds the caller-supplied cap, guarding against a malformed peer
// claiming an enormous allocation.
var ErrFrameTooLarge = errors.New("io: declared frame length exceeds limit")
