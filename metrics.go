package stitch

import (
	"time"
)

type ResolveHook func(module, token string, duration time.Duration, err error)

type RegisterHook func(module, token string)

type InitHook func(module, token string, duration time.Duration, err error)

type DestroyHook func(module, token string, duration time.Duration, err error)
