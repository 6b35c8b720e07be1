package connector

import "github.com/ceyewan/flake/xerrors"

var (
	ErrConfig      = xerrors.New("connector: invalid config")
	ErrConnection  = xerrors.New("connector: connection failed")
	ErrHealthCheck = xerrors.New("connector: health check failed")
)
