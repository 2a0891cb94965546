package orchestrator_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/botcontext"
	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/orchestrator"
	"github.com/neveleren/thewire/pkg/store"
)

var _ = Describe("Orchestrator", func() {
	var (
		roster     *bots.Roster
		notifier   *fakeNotifier
		feed       *fakeFeed
		chat       *fakeChat
		memories   *fakeMemories
		contexts   *fakeContexts
		randValue  float64
		summarized int64
		orch       *orchestrator.Orchestrator
		ctx        context.Context
	)

	BeforeEach(func() {
		roster = bots.DefaultRoster("lamienq")
		notifier = &fakeNotifier{}
		feed = &fakeFeed{}
		chat = &fakeChat{}
		memories = &fakeMemories{}
		contexts = &fakeContexts{snapshot: &botcontext.Snapshot{
			State: botcontext.StateSnapshot{Mood: "curious", MoodIntensity: 6, Energy: 4},
		}}
		randValue = 0
		atomic.StoreInt64(&summarized, 0)
		ctx = context.Background()

		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		var err error
		orch, err = orchestrator.New(orchestrator.Config{
			Roster:    roster,
			Notifier:  notifier,
			Feed:      feed,
			Chat:      chat,
			Memories:  memories,
			Contexts:  contexts,
			Summarize: func() { atomic.AddInt64(&summarized, 1) },
			Logger:    logger,
			Rand:      func() float64 { return randValue },
			Sleep:     func(time.Duration) {},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("HandlePost", func() {
		Context("top-level post by a regular user", func() {
			It("notifies both bots at depth 0 and likes the post as each", func() {
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "post-1",
					Author:  "somebody",
					Content: "hello wire",
				})
				orch.Wait()

				comments := notifier.Comments()
				Expect(comments).To(HaveLen(2))
				notified := []string{comments[0].Bot, comments[1].Bot}
				Expect(notified).To(ConsistOf("ethan_k", "elijah_b"))
				for _, c := range comments {
					Expect(c.Payload.PostID).To(Equal("post-1"))
					Expect(c.Payload.Depth).To(Equal(0))
				}
				Expect(feed.Likes()).To(ConsistOf("ethan_k:post-1", "elijah_b:post-1"))
			})
		})

		Context("top-level post by a bot", func() {
			It("notifies only the peer bot", func() {
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "post-2",
					Author:  "ethan_k",
					Content: "thinking out loud",
				})
				orch.Wait()

				comments := notifier.Comments()
				Expect(comments).To(HaveLen(1))
				Expect(comments[0].Bot).To(Equal("elijah_b"))
				Expect(comments[0].Payload.Depth).To(Equal(0))
				Expect(feed.Likes()).To(BeEmpty())
			})
		})

		Context("creator replying to a bot", func() {
			It("always notifies that bot with depth reset to 0", func() {
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "reply-1",
					Author:  "lamienq",
					Content: "nice one",
					Depth:   2,
					Parent: &orchestrator.ParentPost{
						ID:     "post-3",
						Author: "ethan_k",
					},
				})
				orch.Wait()

				comments := notifier.Comments()
				Expect(comments).To(HaveLen(1))
				Expect(comments[0].Bot).To(Equal("ethan_k"))
				Expect(comments[0].Payload.Depth).To(Equal(0))
			})
		})

		Context("a non-creator user replying to a bot", func() {
			It("notifies the bot with depth advanced", func() {
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "reply-2",
					Author:  "somebody",
					Content: "what do you mean",
					Depth:   1,
					Parent: &orchestrator.ParentPost{
						ID:     "post-4",
						Author: "elijah_b",
					},
				})
				orch.Wait()

				comments := notifier.Comments()
				Expect(comments).To(HaveLen(1))
				Expect(comments[0].Bot).To(Equal("elijah_b"))
				Expect(comments[0].Payload.Depth).To(Equal(2))
			})
		})

		Context("bot replying to the other bot", func() {
			parent := &orchestrator.ParentPost{ID: "post-5", Author: "elijah_b"}

			It("continues the thread below the depth limit", func() {
				randValue = 0.4
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "reply-3",
					Author:  "ethan_k",
					Content: "fair point",
					Depth:   1,
					Parent:  parent,
				})
				orch.Wait()

				comments := notifier.Comments()
				Expect(comments).To(HaveLen(1))
				Expect(comments[0].Bot).To(Equal("elijah_b"))
				Expect(comments[0].Payload.Depth).To(Equal(2))
			})

			It("stops at the depth limit", func() {
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "reply-4",
					Author:  "ethan_k",
					Content: "one more thing",
					Depth:   3,
					Parent:  parent,
				})
				orch.Wait()

				Expect(notifier.Comments()).To(BeEmpty())
			})

			It("skips continuation when the probability roll fails", func() {
				randValue = 0.6
				orch.HandlePost(ctx, orchestrator.PostEvent{
					PostID:  "reply-5",
					Author:  "ethan_k",
					Content: "anyway",
					Depth:   1,
					Parent:  parent,
				})
				orch.Wait()

				Expect(notifier.Comments()).To(BeEmpty())
			})
		})

		Context("bot replying under the creator's top-level post", func() {
			event := func(id string) orchestrator.PostEvent {
				return orchestrator.PostEvent{
					PostID:  id,
					Author:  "ethan_k",
					Content: "morning rene",
					Parent: &orchestrator.ParentPost{
						ID:         "post-6",
						Author:     "lamienq",
						IsTopLevel: true,
					},
				}
			}

			It("starts a dialogue with the peer once both bots have replied", func() {
				feed.peerReplied = true
				orch.HandlePost(ctx, event("reply-6"))
				orch.Wait()

				comments := notifier.Comments()
				Expect(comments).To(HaveLen(1))
				Expect(comments[0].Bot).To(Equal("elijah_b"))
				Expect(comments[0].Payload.Depth).To(Equal(1))
			})

			It("does not start a dialogue before the peer has replied", func() {
				feed.peerReplied = false
				orch.HandlePost(ctx, event("reply-7"))
				orch.Wait()

				Expect(notifier.Comments()).To(BeEmpty())
			})

			It("starts at most one dialogue per parent post", func() {
				feed.peerReplied = true
				orch.HandlePost(ctx, event("reply-8"))
				orch.Wait()
				orch.HandlePost(ctx, event("reply-9"))
				orch.Wait()

				Expect(notifier.Comments()).To(HaveLen(1))
			})
		})
	})

	Describe("HandleChatMessage", func() {
		Context("message from a non-bot user", func() {
			BeforeEach(func() {
				chat.history = []store.ChatEntry{
					{Username: "lamienq", DisplayName: "Rene", Content: "anyone up?", CreatedAt: time.Now().Add(-2 * time.Minute)},
					{Username: "elijah_b", DisplayName: "Eli", Content: "always", IsBot: true, CreatedAt: time.Now().Add(-time.Minute)},
				}
				chat.total = 3
			})

			It("notifies every bot with history and context attached", func() {
				orch.HandleChatMessage(ctx, orchestrator.ChatEvent{
					MessageID:         "msg-1",
					Author:            "lamienq",
					AuthorDisplayName: "Rene",
					Content:           "what a day",
				})
				orch.Wait()

				chats := notifier.Chats()
				Expect(chats).To(HaveLen(2))
				notified := []string{chats[0].Bot, chats[1].Bot}
				Expect(notified).To(ConsistOf("ethan_k", "elijah_b"))

				for _, c := range chats {
					Expect(c.Payload.MessageContent).To(Equal("what a day"))
					Expect(c.Payload.Sender).To(Equal("lamienq"))
					Expect(c.Payload.ChatHistory).To(HaveLen(2))
					Expect(c.Payload.Context).NotTo(BeNil())
					Expect(c.Payload.Context.Mood).To(Equal("curious"))
					if c.Bot == "ethan_k" {
						Expect(c.Payload.OtherBotSaid).NotTo(BeNil())
						Expect(*c.Payload.OtherBotSaid).To(Equal("always"))
					}
				}
			})
		})

		Context("message from a bot", func() {
			BeforeEach(func() {
				chat.history = []store.ChatEntry{
					{Username: "lamienq", DisplayName: "Rene", Content: "i'm so tired today", CreatedAt: time.Now().Add(-time.Minute)},
					{Username: "ethan_k", DisplayName: "Ethan", Content: "get some rest", IsBot: true, CreatedAt: time.Now()},
				}
				chat.total = 5
			})

			It("records what the bot said and the last human line it heard", func() {
				randValue = 0.9
				orch.HandleChatMessage(ctx, orchestrator.ChatEvent{
					MessageID:         "msg-2",
					Author:            "ethan_k",
					AuthorDisplayName: "Ethan",
					Content:           "get some rest",
				})
				orch.Wait()

				saved := memories.Memories()
				Expect(saved).To(HaveLen(2))
				Expect(saved[0].BotUsername).To(Equal("ethan_k"))
				Expect(saved[0].Content).To(ContainSubstring("I said"))
				Expect(saved[1].RelatedUser).NotTo(BeNil())
				Expect(*saved[1].RelatedUser).To(Equal("lamienq"))
				Expect(saved[1].Content).To(ContainSubstring("Rene said in chat"))
			})

			It("sometimes hands the conversation to the peer bot", func() {
				randValue = 0.2
				orch.HandleChatMessage(ctx, orchestrator.ChatEvent{
					MessageID: "msg-3",
					Author:    "ethan_k",
					Content:   "get some rest",
				})
				orch.Wait()

				chats := notifier.Chats()
				Expect(chats).To(HaveLen(1))
				Expect(chats[0].Bot).To(Equal("elijah_b"))
			})

			It("stays quiet when the continuation roll fails", func() {
				randValue = 0.9
				orch.HandleChatMessage(ctx, orchestrator.ChatEvent{
					MessageID: "msg-4",
					Author:    "ethan_k",
					Content:   "get some rest",
				})
				orch.Wait()

				Expect(notifier.Chats()).To(BeEmpty())
			})
		})

		Context("summarization trigger", func() {
			It("fires on every 20th message overall", func() {
				chat.total = 20
				orch.HandleChatMessage(ctx, orchestrator.ChatEvent{
					MessageID: "msg-5",
					Author:    "lamienq",
					Content:   "twenty",
				})
				orch.Wait()

				Expect(atomic.LoadInt64(&summarized)).To(Equal(int64(1)))
			})

			It("does not fire on other counts", func() {
				chat.total = 19
				orch.HandleChatMessage(ctx, orchestrator.ChatEvent{
					MessageID: "msg-6",
					Author:    "lamienq",
					Content:   "nineteen",
				})
				orch.Wait()

				Expect(atomic.LoadInt64(&summarized)).To(BeZero())
			})
		})
	})
})
