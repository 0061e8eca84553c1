// Package resources holds small embedded lookup tables for WoW identifiers
// that only make sense rendered as names: character classes, races, and
// zones. Grounded on common/resources.rs.
package resources

// Class is a WotLK character class ID.
type Class uint8

const (
	ClassWarrior     Class = 1
	ClassPaladin     Class = 2
	ClassHunter      Class = 3
	ClassRogue       Class = 4
	ClassPriest      Class = 5
	ClassDeathKnight Class = 6
	ClassShaman      Class = 7
	ClassMage        Class = 8
	ClassWarlock     Class = 9
	ClassDruid       Class = 11
)

var className = map[Class]string{
	ClassWarrior:     "Warrior",
	ClassPaladin:     "Paladin",
	ClassHunter:      "Hunter",
	ClassRogue:       "Rogue",
	ClassPriest:      "Priest",
	ClassDeathKnight: "Death Knight",
	ClassShaman:      "Shaman",
	ClassMage:        "Mage",
	ClassWarlock:     "Warlock",
	ClassDruid:       "Druid",
}

// Name returns the display name for c, or "Unknown Class" for an ID outside
// the WotLK class table (e.g. a corrupted roster entry).
func (c Class) Name() string {
	if name, ok := className[c]; ok {
		return name
	}
	return "Unknown Class"
}

// Race is a WotLK character race ID.
type Race uint8

const (
	RaceHuman     Race = 1
	RaceOrc       Race = 2
	RaceDwarf     Race = 3
	RaceNightElf  Race = 4
	RaceUndead    Race = 5
	RaceTauren    Race = 6
	RaceGnome     Race = 7
	RaceTroll     Race = 8
	RaceBloodElf  Race = 10
	RaceDraenei   Race = 11
)

var raceName = map[Race]string{
	RaceHuman:    "Human",
	RaceOrc:      "Orc",
	RaceDwarf:    "Dwarf",
	RaceNightElf: "Night Elf",
	RaceUndead:   "Undead",
	RaceTauren:   "Tauren",
	RaceGnome:    "Gnome",
	RaceTroll:    "Troll",
	RaceBloodElf: "Blood Elf",
	RaceDraenei:  "Draenei",
}

// Name returns the display name for r, or "Unknown Race" for an ID outside
// the WotLK race table.
func (r Race) Name() string {
	if name, ok := raceName[r]; ok {
		return name
	}
	return "Unknown Race"
}

// zoneName is a small, deliberately incomplete map of zone IDs the bridge is
// likely to see in roster/chat traffic (capital cities and common leveling
// zones). bridge/orchestrator.rs references a get_zone_name lookup that has
// no corresponding table anywhere in original_source - this is the
// supplemented table that closes that gap, with an explicit fallback rather
// than a silent zero value.
var zoneName = map[uint32]string{
	1:   "Dun Morogh",
	12:  "Elwynn Forest",
	14:  "Durotar",
	17:  "Barrens",
	85:  "Tirisfal Glades",
	130: "Silverpine Forest",
	141: "Teldrassil",
	215: "Mulgore",
	1519: "Stormwind City",
	1537: "Ironforge",
	1637: "Orgrimmar",
	1638: "Thunder Bluff",
	1657: "Darnassus",
	1497: "Undercity",
	4395: "Dalaran",
	4197: "Wintergrasp",
}

// ZoneName returns a human-readable zone name, falling back to "Unknown
// Zone" rather than the bare numeric ID so roster and chat formatting never
// shows a raw integer to a Discord reader.
func ZoneName(id uint32) string {
	if name, ok := zoneName[id]; ok {
		return name
	}
	return "Unknown Zone"
}
