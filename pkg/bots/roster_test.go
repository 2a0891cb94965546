package bots_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
)

var _ = Describe("Roster", func() {
	var roster *bots.Roster

	BeforeEach(func() {
		roster = bots.DefaultRoster("lamienq")
	})

	It("knows who the bots and the creator are", func() {
		Expect(roster.IsBot("ethan_k")).To(BeTrue())
		Expect(roster.IsBot("elijah_b")).To(BeTrue())
		Expect(roster.IsBot("lamienq")).To(BeFalse())
		Expect(roster.IsCreator("lamienq")).To(BeTrue())
		Expect(roster.IsCreator("ethan_k")).To(BeFalse())
		Expect(roster.Creator()).To(Equal("lamienq"))
	})

	It("pairs each bot with the other as its peer", func() {
		peer, ok := roster.Peer("ethan_k")
		Expect(ok).To(BeTrue())
		Expect(peer.Username).To(Equal("elijah_b"))

		peer, ok = roster.Peer("elijah_b")
		Expect(ok).To(BeTrue())
		Expect(peer.Username).To(Equal("ethan_k"))

		_, ok = roster.Peer("lamienq")
		Expect(ok).To(BeFalse())
	})

	It("cycles peers in ring order for larger rosters", func() {
		big := bots.NewRoster("creator",
			bots.Bot{Username: "a"},
			bots.Bot{Username: "b"},
			bots.Bot{Username: "c"},
		)

		peer, _ := big.Peer("a")
		Expect(peer.Username).To(Equal("b"))
		peer, _ = big.Peer("c")
		Expect(peer.Username).To(Equal("a"))
	})

	It("excludes the named user from Others", func() {
		others := roster.Others("ethan_k")
		Expect(others).To(HaveLen(1))
		Expect(others[0].Username).To(Equal("elijah_b"))

		Expect(roster.Others("lamienq")).To(HaveLen(2))
	})

	It("resolves slugs for webhook routing", func() {
		ethan, ok := roster.Get("ethan_k")
		Expect(ok).To(BeTrue())
		Expect(ethan.Slug).To(Equal("ethan"))
		Expect(ethan.DisplayName).To(Equal("Ethan"))

		_, ok = roster.Get("nobody")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Personas", func() {
	It("defines a persona for every default bot", func() {
		roster := bots.DefaultRoster("lamienq")
		for _, bot := range roster.Bots() {
			persona, ok := bots.Personas[bot.Username]
			Expect(ok).To(BeTrue(), "missing persona for %s", bot.Username)
			Expect(persona.Moods).NotTo(BeEmpty())
			Expect(persona.Focuses).NotTo(BeEmpty())
			Expect(persona.EnergyMin).To(BeNumerically("<=", persona.EnergyMax))
			Expect(persona.IntensityMin).To(BeNumerically("<=", persona.IntensityMax))
			for _, eventType := range []models.EventType{
				models.EventMundane, models.EventInteresting,
				models.EventFrustrating, models.EventExciting,
			} {
				Expect(persona.Events[eventType]).NotTo(BeEmpty())
			}
		}
	})

	It("keeps the two personas distinct", func() {
		ethan := bots.Personas["ethan_k"]
		eli := bots.Personas["elijah_b"]
		Expect(ethan.EnergyMin).NotTo(Equal(eli.EnergyMin))
		Expect(ethan.Events[models.EventMundane]).NotTo(Equal(eli.Events[models.EventMundane]))
	})
})
