package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/livecaphq/livecap/internal/session"
)

// Viewer renders a guest's live caption feed. It drives the join handshake
// on the coordinator and redraws the mirrored transcript as entries arrive.
type Viewer struct {
	coord     *session.Coordinator
	sessionID string
	status    string
}

func NewViewer(coord *session.Coordinator, sessionID string) *Viewer {
	return &Viewer{coord: coord, sessionID: sessionID}
}

// Run requests to join and blocks until the session ends, the context is
// cancelled, or the guest declines to retry after a rejection.
func (v *Viewer) Run(ctx context.Context) error {
	if err := v.coord.RequestJoin(); err != nil {
		return err
	}
	v.status = StyleWarning.Render("waiting for the host to approve...")
	v.redraw()

	for {
		select {
		case e := <-v.coord.Events():
			switch e.Kind {
			case session.EventApproved:
				v.status = StyleSuccess.Render("connected")
				v.redraw()

			case session.EventRejected:
				v.status = StyleError.Render("request rejected")
				v.redraw()
				retry, err := v.askRetry()
				if err != nil || !retry {
					return err
				}
				if err := v.coord.Retry(); err != nil {
					return err
				}
				v.status = StyleWarning.Render("waiting for the host to approve...")
				v.redraw()

			case session.EventEntry, session.EventCleared:
				v.redraw()

			case session.EventEnded:
				v.status = StyleMuted.Render("session ended by the host")
				v.redraw()
				return nil
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (v *Viewer) redraw() {
	clearScreen()
	fmt.Println(Logo())
	fmt.Printf("%s %s\n", StyleMuted.Render("session:"), v.sessionID)
	fmt.Println(v.status)
	fmt.Println()
	for _, e := range v.coord.Transcript().Entries() {
		fmt.Println(RenderEntry(e))
	}
}

func (v *Viewer) askRetry() (bool, error) {
	retry := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("The host rejected your request. Ask again?").
				Value(&retry),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return false, nil
	}
	return retry, nil
}
