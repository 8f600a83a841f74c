package job

import "strings"

// Action is the verb of a Task.
type Action int

const (
	NoAction Action = iota
	Use
	Take
	Drop
	PutIn
	Build
	Move
	MoveAdjacent
	MoveNear
	Wait
	Drink
	Eat
	Find
	Harvest
	Fell
	HarvestWildPlant
	Kill
	FleeMap
	Sleep
	Dismantle
	Wield
	Wear
	BogIron
	StockpileItem
	Quiver
	Fill
	Pour
	Dig
	Forget
	Unwield
	GetAngry
	CalmDown
	StartFire
	Repair
	FillDitch
	actionCount
)

var actionNames = [actionCount]string{
	NoAction:         "No Action",
	Use:              "Use",
	Take:             "Pick up",
	Drop:             "Drop",
	PutIn:            "Put in",
	Build:            "Build",
	Move:             "Move",
	MoveAdjacent:     "Move adjacent",
	MoveNear:         "Move Near",
	Wait:             "Wait",
	Drink:            "Drink",
	Eat:              "Eat",
	Find:             "Find",
	Harvest:          "Harvest",
	Fell:             "Fell",
	HarvestWildPlant: "Harvest plant",
	Kill:             "Kill",
	FleeMap:          "Flee!!",
	Sleep:            "Sleep",
	Dismantle:        "Dismantle",
	Wield:            "Wield",
	Wear:             "Wear",
	BogIron:          "Collect bog iron",
	StockpileItem:    "Stockpile item",
	Quiver:           "Quiver",
	Fill:             "Fill",
	Pour:             "Pour",
	Dig:              "Dig",
	Forget:           "Huh?",
	Unwield:          "Unwield",
	GetAngry:         "Get angry",
	CalmDown:         "Calm down",
	StartFire:        "Start fire",
	Repair:           "Repair",
	FillDitch:        "Fill ditch",
}

// String returns the display name of the action, "???" when unknown.
func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return "???"
	}
	return actionNames[a]
}

// Actions returns every defined action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := NoAction; a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

// ActionFromString parses a display name or a compact upper-case verb
// ("MOVEADJACENT", "Move adjacent" and "move_adjacent" are all accepted).
func ActionFromString(s string) (Action, bool) {
	key := normalize(s)
	for a := NoAction; a < actionCount; a++ {
		if normalize(actionNames[a]) == key || normalize(verbs[a]) == key {
			return a, true
		}
	}
	return NoAction, false
}

var verbs = [actionCount]string{
	NoAction: "NOACTION", Use: "USE", Take: "TAKE", Drop: "DROP", PutIn: "PUTIN",
	Build: "BUILD", Move: "MOVE", MoveAdjacent: "MOVEADJACENT", MoveNear: "MOVENEAR",
	Wait: "WAIT", Drink: "DRINK", Eat: "EAT", Find: "FIND", Harvest: "HARVEST",
	Fell: "FELL", HarvestWildPlant: "HARVESTWILDPLANT", Kill: "KILL", FleeMap: "FLEEMAP",
	Sleep: "SLEEP", Dismantle: "DISMANTLE", Wield: "WIELD", Wear: "WEAR",
	BogIron: "BOGIRON", StockpileItem: "STOCKPILEITEM", Quiver: "QUIVER", Fill: "FILL",
	Pour: "POUR", Dig: "DIG", Forget: "FORGET", Unwield: "UNWIELD", GetAngry: "GETANGRY",
	CalmDown: "CALMDOWN", StartFire: "STARTFIRE", Repair: "REPAIR", FillDitch: "FILLDITCH",
}

func normalize(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(s))
}
