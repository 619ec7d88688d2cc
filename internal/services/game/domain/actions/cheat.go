package actions

import (
	"fmt"
	"math"
	"strconv"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Cheat identifies a cheat.
type Cheat uint8

const (
	CheatSandboxMode Cheat = iota
	CheatDisableTrainLengthLimit
	CheatIgnoreResearchStatus
	CheatShowVehiclesFromOtherTrackTypes
	CheatBuildInPauseMode
	CheatNoMoney
	CheatAddMoney
	CheatSetMoney
	CheatFixRides
	cheatCount
)

const msgCheatFailed = "CHEAT_FAILED"

type paramRange struct{ min, max int64 }

var (
	noParam     = paramRange{0, 0}
	toggleParam = paramRange{0, 1}
	moneyParam  = paramRange{math.MinInt32, math.MaxInt32}
)

// cheatParams are the valid [min, max] ranges of Param1 and Param2.
var cheatParams = [cheatCount][2]paramRange{
	CheatSandboxMode:                     {toggleParam, noParam},
	CheatDisableTrainLengthLimit:         {toggleParam, noParam},
	CheatIgnoreResearchStatus:            {toggleParam, noParam},
	CheatShowVehiclesFromOtherTrackTypes: {toggleParam, noParam},
	CheatBuildInPauseMode:                {toggleParam, noParam},
	CheatNoMoney:                         {toggleParam, noParam},
	CheatAddMoney:                        {moneyParam, noParam},
	CheatSetMoney:                        {moneyParam, noParam},
	CheatFixRides:                        {noParam, noParam},
}

// SetCheat toggles a cheat or runs a one-off cheat. Money parameters are in
// tenths.
type SetCheat struct {
	Cheat  Cheat
	Param1 int64
	Param2 int64
}

func (*SetCheat) Type() command.Type             { return TypeSetCheat }
func (*SetCheat) Flags() command.Flags           { return command.FlagAllowWhilePaused }
func (*SetCheat) Capability() command.Capability { return command.CapCheat }

func (c *SetCheat) Validate(view world.View, _ command.Context) command.Result {
	if c.Cheat >= cheatCount {
		return command.Fail(command.StatusInvalidParameters, msgCheatFailed, "INVALID_CHEAT")
	}
	ranges := cheatParams[c.Cheat]
	for i, p := range [2]int64{c.Param1, c.Param2} {
		if p < ranges[i].min || p > ranges[i].max {
			return command.Fail(command.StatusInvalidParameters, msgCheatFailed, "INVALID_CHEAT_PARAMETER").
				WithArg("Param", strconv.Itoa(i+1))
		}
	}
	return command.Ok()
}

func (c *SetCheat) Apply(m world.Mutator, _ command.Context) command.Result {
	cheats := m.Cheats()
	on := c.Param1 != 0
	switch c.Cheat {
	case CheatSandboxMode:
		cheats.SandboxMode = on
	case CheatDisableTrainLengthLimit:
		cheats.DisableTrainLengthLimit = on
	case CheatIgnoreResearchStatus:
		cheats.IgnoreResearchStatus = on
	case CheatShowVehiclesFromOtherTrackTypes:
		cheats.ShowVehiclesFromOtherTrackTypes = on
	case CheatBuildInPauseMode:
		cheats.BuildInPauseMode = on
	case CheatNoMoney:
		cheats.NoMoney = on
	case CheatAddMoney:
		m.SetCash(m.Cash().Add(money.Money(c.Param1)))
		return command.Ok()
	case CheatSetMoney:
		m.SetCash(money.Money(c.Param1))
		return command.Ok()
	case CheatFixRides:
		for _, ride := range m.Rides() {
			if ride.Lifecycle&(world.LifecycleBrokenDown|world.LifecycleCrashed) == 0 {
				continue
			}
			ride.Lifecycle &^= world.LifecycleBrokenDown | world.LifecycleCrashed
			m.PutRide(ride)
		}
		return command.Ok()
	default:
		return command.Fail(command.StatusInvalidParameters, msgCheatFailed, "INVALID_CHEAT")
	}
	m.SetCheats(cheats)
	return command.Ok()
}

func (c *SetCheat) MarshalFields(enc *command.Encoder) {
	enc.Uint(uint64(c.Cheat))
	enc.Int(c.Param1)
	enc.Int(c.Param2)
}

func (c *SetCheat) UnmarshalFields(dec *command.Decoder) error {
	c.Cheat = Cheat(dec.Uint8())
	c.Param1 = dec.Int64()
	c.Param2 = dec.Int64()
	if err := dec.Err(); err != nil {
		return err
	}
	if c.Cheat >= cheatCount {
		return fmt.Errorf("cheat %d out of range", c.Cheat)
	}
	return nil
}
