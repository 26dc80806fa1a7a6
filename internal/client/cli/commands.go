package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/client"
	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/services"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/cryptox"
)

const listLimit = 20

func (a *App) isLoggedIn() bool {
	return a.auth.LoggedIn()
}

// status renders the prompt prefix, for example "(ranger 11 online)".
func (a *App) status() string {
	s := ""
	if id, ok, err := a.auth.RangerID(context.Background()); err == nil && ok {
		s = fmt.Sprintf("ranger %d ", id)
	}
	s += string(a.Mode())
	if !a.isLoggedIn() {
		s += ", signed out"
	}
	return "(" + s + ")"
}

func (a *App) Login(ctx context.Context) error {
	raw, err := GetSimpleText(a.reader, "Ranger ID", a.out)
	if err != nil {
		return err
	}
	rangerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("ranger id must be a number: %q", raw)
	}

	pin, err := GetPIN(a.out)
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(pin)

	if err := a.auth.Login(ctx, rangerID, string(pin)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			return fmt.Errorf("server unreachable, try again when online: %w", err)
		}
		return err
	}

	fmt.Fprintln(a.out, "Login successful")
	a.engine.Force()
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Record captures a passage. Arguments are the plate followed by an
// optional vehicle type; whatever is missing is prompted for.
func (a *App) Record(ctx context.Context, args []string) error {
	in := services.RecordInput{VehicleType: common.VehicleCar}

	switch {
	case len(args) == 0:
		plate, err := GetSimpleText(a.reader, "Plate", a.out)
		if err != nil {
			return err
		}
		vt, err := GetWithDefault(a.reader, "Vehicle type (car, motorcycle, bus, truck, van, tractor, other)", "car", a.out)
		if err != nil {
			return err
		}
		photo, err := GetSimpleText(a.reader, "Photo file (empty for none)", a.out)
		if err != nil {
			return err
		}
		in.RawPlate, in.VehicleType, in.PhotoPath = plate, common.ParseVehicleType(vt), photo

	case len(args) > 1 && looksLikeVehicleType(args[len(args)-1]):
		in.RawPlate = strings.Join(args[:len(args)-1], " ")
		in.VehicleType = common.ParseVehicleType(args[len(args)-1])

	default:
		in.RawPlate = strings.Join(args, " ")
	}

	p, out, err := a.recorder.Record(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Recorded %s (%s) at %s, id %s\n", p.Plate, p.VehicleType, p.RecordedAt.Format(time.RFC3339), p.ClientID)
	switch {
	case out.Violation != nil:
		fmt.Fprintln(a.out, "!!", formatViolation(out.Violation))
	case out.Matched:
		fmt.Fprintf(a.out, "Matched passage %d, within limits\n", out.Remote.ID)
	}
	return nil
}

func looksLikeVehicleType(s string) bool {
	if common.VehicleType(strings.ToLower(s)).Valid() {
		return true
	}
	_, ok := common.VehicleTypeFromCode(s)
	return ok
}

// Sync runs a cycle in the foreground and prints its outcome.
func (a *App) Sync(ctx context.Context) error {
	rep, err := a.engine.RunCycle(ctx)
	if err != nil {
		return err
	}
	if rep.Skipped {
		fmt.Fprintln(a.out, "A sync is already running")
		return nil
	}
	if !rep.Online {
		fmt.Fprintf(a.out, "Offline: %d passage(s) sent by SMS\n", rep.SMSSent)
		return nil
	}
	fmt.Fprintf(a.out, "Pushed %d (%d already known), %d retrying, %d parked; pulled %d; %d confirmed, %d rejected; %d by SMS\n",
		rep.Pushed, rep.Duplicates, rep.Retried, rep.Failed, rep.Pulled, rep.Confirmed, rep.Rejected, rep.SMSSent)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	counts, err := a.rm.Queue(a.db).Counts(ctx)
	if err != nil {
		return err
	}
	cached, err := a.rm.Cache(a.db).Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Mode: %s, signed in: %t\n", a.Mode(), a.isLoggedIn())
	fmt.Fprintf(a.out, "Checkpost %s (#%d), segment %d\n", a.config.CheckpostCode, a.config.CheckpostID, a.config.SegmentID)
	fmt.Fprintf(a.out, "Queue: %d pending, %d in flight, %d synced, %d failed\n",
		counts[models.QueuePending], counts[models.QueueInFlight], counts[models.QueueSynced], counts[models.QueueFailed])
	fmt.Fprintf(a.out, "Cached opposite passages: %d\n", cached)

	var lastPull time.Time
	if ok, err := a.rm.Metadata(a.db).GetJSON(ctx, metadata.KeyLastPullAt, &lastPull); err == nil && ok {
		fmt.Fprintf(a.out, "Last pull: %s\n", lastPull.Format(time.RFC3339))
	}
	return nil
}

func (a *App) Violations(ctx context.Context, args []string) error {
	all := len(args) > 0 && args[0] == "all"
	list, err := a.rm.Violations(a.db).List(ctx, listLimit, all)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No violations")
		return nil
	}
	for _, v := range list {
		fmt.Fprintln(a.out, formatViolation(v))
	}
	return nil
}

func (a *App) Passages(ctx context.Context, args []string) error {
	limit := listLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: passages [count]")
		}
		limit = n
	}

	list, err := a.rm.Passages(a.db).List(ctx, limit)
	if err != nil {
		return err
	}
	for _, p := range list {
		state := "unsynced"
		if p.Synced() {
			state = fmt.Sprintf("server #%d", *p.ServerID)
		}
		fmt.Fprintf(a.out, "%s  %-12s %-10s %s  %s, match %s\n", p.ClientID, p.Plate, p.VehicleType,
			p.RecordedAt.Local().Format("2006-01-02 15:04:05"), state, p.MatchState)
	}
	return nil
}

func (a *App) Photo(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: photo <client_id> [path]")
	}
	path := ""
	if len(args) > 1 {
		path = args[1]
	}
	key, err := a.photos.Attach(ctx, args[0], path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Photo stored as %s\n", key)
	return nil
}

func formatViolation(v *models.Violation) string {
	speed := "instant"
	if !v.ZeroTravel() {
		speed = fmt.Sprintf("%.1f km/h", v.SpeedKmh)
	}
	s := fmt.Sprintf("%s %s: %.1f min (limit %.1f), %s, %s", strings.ToUpper(string(v.Type)), v.Plate,
		v.TravelMinutes, v.ThresholdMinutes, speed, v.Provenance)
	if v.Status == models.ViolationStale {
		s += " [not confirmed]"
	}
	return s
}

// watchViolations prints every verdict that appears while the REPL runs.
func (a *App) watchViolations(ctx context.Context) {
	ch, cancel := a.hub.Subscribe(store.TopicViolations)
	defer cancel()

	seen := make(map[int64]common.Provenance)
	if list, err := a.rm.Violations(a.db).List(ctx, listLimit, false); err == nil {
		for _, v := range list {
			seen[v.ID] = v.Provenance
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}

		list, err := a.rm.Violations(a.db).List(ctx, listLimit, false)
		if err != nil {
			a.log.Error(ctx, "list violations", "error", err)
			continue
		}
		for _, v := range list {
			if prev, ok := seen[v.ID]; ok && !v.Provenance.Outranks(prev) {
				continue
			}
			seen[v.ID] = v.Provenance
			if v.Provenance == common.ProvenanceAuthoritative {
				fmt.Fprintln(a.out, "\n!! confirmed:", formatViolation(v))
			}
		}
	}
}
