package chordring

import (
	"context"
	"fmt"

	"github.com/abentley/chordring/internal/wire"
)

// dispatch implements the request/response table of spec.md §4.6,
// routing an inbound frame to the named virtual node. An error here
// means no reply frame is sent for this request; per §7 the connection
// stays open and the next frame is read as usual.
func (s *Server) dispatch(ctx context.Context, req wire.Request) (wire.Response, error) {
	vn, err := s.VirtualNode(req.VNID)
	if err != nil {
		return wire.Response{}, err
	}

	switch req.Command {
	case wire.ClosestPrecedingFinger:
		loc := vn.closestPrecedingFinger(req.Key)
		return wire.Response{Command: wire.ClosestPrecedingFinger, Location: loc, HasLocation: true}, nil

	case wire.GetPredecessor:
		loc, ok := vn.getPredecessor()
		return wire.Response{Command: wire.GetPredecessor, Location: loc, HasLocation: ok}, nil

	case wire.GetSuccessor:
		loc := vn.getSuccessor()
		return wire.Response{Command: wire.GetSuccessor, Location: loc, HasLocation: true}, nil

	case wire.Info:
		return wire.Response{Command: wire.Info, Info: vn.infoText()}, nil

	case wire.Join:
		if err := vn.Join(ctx, req.Location); err != nil {
			return wire.Response{}, err
		}
		return wire.Response{Command: wire.Join}, nil

	case wire.Lookup:
		loc, err := FindSuccessor(ctx, vn.transport, vn.Self(), req.Key)
		if err != nil {
			return wire.Response{}, err
		}
		return wire.Response{Command: wire.Lookup, Location: loc, HasLocation: true}, nil

	case wire.Notify:
		vn.notifyWith(req.Location)
		return wire.Response{Command: wire.Notify}, nil

	default:
		return wire.Response{}, fmt.Errorf("%w: %s", wire.ErrUnknownCommand, req.Command)
	}
}
