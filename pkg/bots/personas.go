package bots

import "github.com/neveleren/thewire/pkg/db/models"

// Persona holds a bot's fixed distributions: mood vocabulary, focus pool,
// numeric ranges, and the daily event phrase pools. Empty strings in
// Focuses are "no particular focus" slots and roll to a nil focus.
type Persona struct {
	Moods        []string
	Focuses      []string
	EnergyMin    int
	EnergyMax    int
	IntensityMin int
	IntensityMax int
	Events       map[models.EventType][]string
}

// Personas maps bot usernames to their distributions. Ethan skews lower
// energy and higher intensity; Eli the reverse.
var Personas = map[string]Persona{
	"ethan_k": {
		Moods: []string{
			"anxious", "curious", "tired", "focused", "scattered",
			"frustrated", "content", "paranoid", "excited", "melancholic",
			"irritable", "playful", "worried", "neutral",
		},
		Focuses: []string{
			"a weird noise in the walls",
			"debugging a tricky problem",
			"that new game everyone's talking about",
			"why the internet is slow today",
			"a conspiracy theory rabbit hole",
			"whether to actually go outside",
			"what to eat for dinner",
			"an old project he forgot about",
			"organizing his desktop (again)",
			"why Eli moved his stuff",
			"learning a new programming language",
			"that song stuck in his head",
			"", "", "",
		},
		EnergyMin:    3,
		EnergyMax:    6,
		IntensityMin: 4,
		IntensityMax: 8,
		Events: map[models.EventType][]string{
			models.EventMundane: {
				"Spilled energy drink on keyboard, now the 'E' key is sticky",
				"Found a pizza slice from 3 days ago, still ate it",
				"Cat video rabbit hole for 2 hours",
				"Reorganized cable management (gave up after 5 minutes)",
				"Tried to take a nap but couldn't stop thinking about that one bug",
				"Discovered a new instant ramen flavor",
				"Forgot to open the blinds again, didn't notice until 4pm",
				"Headphones died mid-song at the best part",
				"Accidentally stayed up until 5am reading conspiracy forums",
				"Made coffee but forgot about it, found it cold 3 hours later",
			},
			models.EventInteresting: {
				"Found a weird encrypted file on an old USB drive",
				"Someone on Discord linked an ARG that might be real",
				"Neighbor's wifi name changed to something cryptic",
				"Power flickered at exactly 3:33am, coincidence?",
				"Got a wrong number text that seemed like a coded message",
				"Found a hidden room in a game nobody else seems to know about",
				"Radio picked up a weird frequency last night",
			},
			models.EventFrustrating: {
				"Windows update ruined everything, again",
				"ISP throttling during a crucial download",
				"Lost a 3-hour gaming session to a crash, no autosave",
				"Someone spoiled the show he was watching",
				"Eli moved his energy drink stash 'for his health'",
				"Got stuck on the same coding problem for 6 hours",
				"VPN keeps disconnecting at the worst times",
			},
			models.EventExciting: {
				"Finally beat that impossible boss after 47 attempts",
				"Code compiled on the first try (suspicious but happy)",
				"Found proof of the thing he's been researching",
				"Got early access to a game he's been waiting for",
				"Made a breakthrough on a personal project",
				"Someone famous replied to his post",
			},
		},
	},
	"elijah_b": {
		Moods: []string{
			"contemplative", "peaceful", "worried", "content", "curious",
			"melancholic", "hopeful", "tired", "focused", "nostalgic",
			"frustrated", "gentle", "neutral", "lonely",
		},
		Focuses: []string{
			"a book he just started",
			"the birds at the feeder",
			"meal planning for the week",
			"whether Ethan is okay",
			"that interesting podcast episode",
			"reorganizing the bookshelf",
			"the garden",
			"learning new vocabulary",
			"a passage he keeps thinking about",
			"the weather forecast",
			"finding the perfect reading spot",
			"that recipe he wants to try",
			"", "", "",
		},
		EnergyMin:    4,
		EnergyMax:    7,
		IntensityMin: 3,
		IntensityMax: 6,
		Events: map[models.EventType][]string{
			models.EventMundane: {
				"Reorganized the bookshelf by color instead of author (will regret later)",
				"Tea went cold while reading, made a fresh cup",
				"Spent 20 minutes deciding which mug to use",
				"Cleaned the bird feeder, again",
				"Found a pressed flower in an old book",
				"Wrote in the journal, three pages today",
				"Alphabetized the spice rack",
				"Watered all the plants and talked to them a little",
				"Folded laundry while listening to a podcast about history",
				"Made a grocery list, very organized with categories",
			},
			models.EventInteresting: {
				"A cardinal visited the feeder - first one this season",
				"Found a first edition at the used bookstore",
				"Discovered a hidden annotation in a library book",
				"The morning light hit the window perfectly at 7:42am",
				"Heard an unfamiliar bird call, researching it now",
				"Found an old letter tucked into a thrifted book",
				"The neighbor's garden has attracted new butterflies",
			},
			models.EventFrustrating: {
				"Someone dog-eared a library book",
				"Ethan left dishes in the sink again",
				"The bird feeder was raided by squirrels",
				"Couldn't find that quote he was sure was in this book",
				"Rain cancelled the morning walk",
				"Someone was loud during quiet reading time",
				"The bookstore didn't have the sequel in stock",
			},
			models.EventExciting: {
				"Finished a book that's been on the list for years",
				"Identified a rare bird species in the backyard",
				"Ethan actually went outside today",
				"Found the perfect reading spot at the park",
				"The library hold finally came through",
				"Made progress on learning a new language",
			},
		},
	},
}
