package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mockly/internal/auth"
	"mockly/internal/config"
	"mockly/internal/model/interview"
	"mockly/internal/speech"
)

var (
	ErrNotSignedIn        = errors.New("no signed-in user for this session")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrSessionCompleted   = errors.New("session already completed")
)

// QuestionService is the slice of the Interview Service the controller needs.
type QuestionService interface {
	FetchQuestions(ctx context.Context, userID, sessionID string) ([]interview.Question, error)
	SubmitResponses(ctx context.Context, sub interview.Submission) (interview.SubmissionResult, error)
}

// FollowUpGenerator produces an open-ended interviewer reply once the
// scripted questions are exhausted. Optional; a canned line is used without it.
type FollowUpGenerator interface {
	FollowUp(ctx context.Context, history []interview.Message, userText string) (string, error)
}

// Device is the exclusively-owned camera/microphone capture device. Toggles
// flip track-enabled state on the already-acquired device; Release gives it
// back on teardown.
type Device interface {
	SetMicEnabled(on bool)
	Release()
}

// Scheduler schedules the named conversation delays. Tests inject an
// immediate implementation.
type Scheduler func(d time.Duration, fn func())

func realScheduler(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Deps are the collaborators a Controller coordinates.
type Deps struct {
	SessionID string
	Auth      auth.Provider
	Service   QuestionService
	Capture   *speech.Capture
	Speaker   *speech.Speaker
	Device    Device
	FollowUp  FollowUpGenerator
	Pace      config.PaceConfig
	Schedule  Scheduler
	LoginURL  string
	Logger    *zap.Logger
}

// Controller drives the turn-taking interview conversation: it owns the
// question cursor, the answer store, the conversation timeline, and all
// transitions between AI and user turns. It is the sole writer of current
// question and recording state.
type Controller struct {
	deps Deps
	log  *zap.Logger

	mu           sync.Mutex
	state        State
	user         auth.User
	seq          *Sequencer
	answers      *AnswerStore
	timeline     *Timeline
	transcript   speech.Transcript
	typing       bool
	micEnabled   bool
	videoEnabled bool
	submitting   bool
	closed       bool
	unsubscribe  func()
	cancelRun    context.CancelFunc

	events chan Event
}

// New builds a controller for one interview session. Call Start to run it.
func New(deps Deps) *Controller {
	if deps.Schedule == nil {
		deps.Schedule = realScheduler
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Controller{
		deps:         deps,
		log:          deps.Logger.With(zap.String("sessionId", deps.SessionID)),
		state:        StateInitializing,
		seq:          NewSequencer(nil),
		answers:      NewAnswerStore(),
		timeline:     NewTimeline(),
		micEnabled:   true,
		videoEnabled: true,
		events:       make(chan Event, 64),
	}
}

// Events is the UI-facing update stream. Single consumer.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// SessionID returns the session key.
func (c *Controller) SessionID() string {
	return c.deps.SessionID
}

// Start verifies the user, fetches the question list, and begins the
// conversation. A question-fetch failure degrades to an empty list with a
// recoverable notice; the user is never blocked by it.
func (c *Controller) Start(ctx context.Context) error {
	user, signedIn := c.deps.Auth.Current()
	if !signedIn {
		c.emit(newEvent(EventRedirect, c.deps.LoginURL))
		return ErrNotSignedIn
	}

	unsubscribe := c.deps.Auth.Subscribe(func(_ auth.User, stillSignedIn bool) {
		if !stillSignedIn {
			c.emit(newEvent(EventRedirect, c.deps.LoginURL))
		}
	})

	// The session outlives the request that opened it; the consumer loop
	// runs until Close.
	runCtx, cancelRun := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	c.user = user
	c.unsubscribe = unsubscribe
	c.cancelRun = cancelRun
	c.setStateLocked(StateAwaitingQuestions)
	c.mu.Unlock()

	questions, err := c.deps.Service.FetchQuestions(ctx, user.ID, c.deps.SessionID)
	if err != nil {
		c.log.Warn("question fetch failed, continuing with empty list", zap.Error(err))
		c.notify(Notice{
			Title:       "Error",
			Description: "Failed to load interview questions",
			Severity:    "error",
		})
		questions = nil
	}

	c.mu.Lock()
	c.seq = NewSequencer(questions)
	c.setStateLocked(StateGreeting)
	c.setTypingLocked(true)
	c.mu.Unlock()

	go c.consumeSpeech(runCtx)

	c.deps.Schedule(c.deps.Pace.Greeting, c.greet)
	return nil
}

// greet posts and speaks the welcome message, then moves to the first
// question or the no-questions fallback.
func (c *Controller) greet() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.setTypingLocked(false)
	c.appendLocked(interview.SenderAI, welcomeText)
	hasQuestions := c.seq.Len() > 0
	c.mu.Unlock()

	c.deps.Speaker.Speak(welcomeText)

	if hasQuestions {
		c.deps.Schedule(c.deps.Pace.FirstQuestion, c.askCurrent)
		return
	}

	c.deps.Schedule(c.deps.Pace.FirstQuestion, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.appendLocked(interview.SenderAI, noQuestionsText)
		c.setStateLocked(StateAwaitingAnswer)
		c.mu.Unlock()

		c.deps.Speaker.Speak(noQuestionsText)
	})
}

// askCurrent displays and speaks the question at the cursor after the
// typing delay, then hands the turn to the user.
func (c *Controller) askCurrent() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateAskingQuestion)
	c.setTypingLocked(true)
	c.mu.Unlock()

	c.deps.Schedule(c.deps.Pace.Question, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		question, ok := c.seq.Current()
		if !ok {
			// Sequencer exhausted between scheduling and firing; nothing to ask.
			c.setTypingLocked(false)
			c.setStateLocked(StateWrapping)
			c.mu.Unlock()
			return
		}
		c.setTypingLocked(false)
		c.appendLocked(interview.SenderAI, question.Text)
		c.setStateLocked(StateAwaitingAnswer)
		c.mu.Unlock()

		c.deps.Speaker.Speak(question.Text)
	})
}

// SubmitText completes the user's turn with explicitly sent text.
func (c *Controller) SubmitText(text string) {
	if text = strings.TrimSpace(text); text == "" {
		return
	}
	c.completeTurn(text)
}

// StartListening begins speech capture for the current turn.
func (c *Controller) StartListening() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.transcript.Reset()
	c.mu.Unlock()

	if err := c.deps.Capture.Start(); err != nil {
		switch {
		case errors.Is(err, speech.ErrUnsupported):
			c.notify(Notice{
				Title:       "Speech recognition unavailable",
				Description: "Type your answer instead.",
				Severity:    "info",
			})
		case errors.Is(err, speech.ErrAlreadyListening):
			// UI double-fire; the active run keeps going.
		default:
			c.notify(Notice{
				Title:       "Error",
				Description: "Could not start speech recognition. Please try again.",
				Severity:    "error",
			})
		}
		return err
	}

	c.emit(newEvent(EventListening, true))
	return nil
}

// StopListening ends speech capture and, when the working transcript is
// non-empty, completes the turn with it.
func (c *Controller) StopListening() {
	c.deps.Capture.Stop()
	c.emit(newEvent(EventListening, false))

	c.mu.Lock()
	text := strings.TrimSpace(c.transcript.Working())
	c.mu.Unlock()

	if text == "" {
		return
	}
	c.completeTurn(text)
}

// consumeSpeech folds capture results into the working transcript and treats
// engine-detected end-of-speech like an explicit stop.
func (c *Controller) consumeSpeech(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-c.deps.Capture.Snapshots():
			c.mu.Lock()
			c.transcript.Observe(snapshot)
			working := c.transcript.Working()
			c.mu.Unlock()
			c.emit(newEvent(EventTranscript, working))
		case err := <-c.deps.Capture.Done():
			c.emit(newEvent(EventListening, false))
			if err != nil {
				c.notify(Notice{
					Title:       "Speech Recognition Error",
					Description: fmt.Sprintf("%v. Please try again.", err),
					Severity:    "error",
				})
				continue
			}

			c.mu.Lock()
			text := strings.TrimSpace(c.transcript.Working())
			c.mu.Unlock()
			if text != "" {
				c.completeTurn(text)
			}
		}
	}
}

// completeTurn records the answer for the current question (idempotent per
// question id), appends the user message, advances the sequencer, and
// schedules the interviewer's next move. Racing completion paths resolve
// here: only a state that accepts a user turn proceeds, and the transcript
// is consumed exactly once.
func (c *Controller) completeTurn(text string) {
	c.mu.Lock()
	if c.closed || !c.state.acceptsUserTurn() {
		c.mu.Unlock()
		return
	}

	c.appendLocked(interview.SenderUser, text)

	question, hadQuestion := c.seq.Current()
	if hadQuestion {
		c.answers.Record(question.ID, text)
	}
	c.transcript.Reset()

	var nextText string
	var wrapped bool
	if hadQuestion {
		next, ok := c.seq.Advance()
		if ok {
			nextText = transitionPrefix + next.Text
		} else {
			wrapped = true
		}
		c.setStateLocked(StateEvaluating)
	} else {
		// Open-ended tail: no cursor movement, just a follow-up.
		c.setStateLocked(StateEvaluating)
	}
	c.setTypingLocked(true)
	history := c.timeline.Messages()
	c.mu.Unlock()

	c.deps.Schedule(c.deps.Pace.FollowUp, func() {
		c.postInterviewerReply(nextText, wrapped, history, text)
	})
}

// postInterviewerReply emits the AI side of the turn: the next scripted
// question, the wrap-up line, or an open-ended follow-up.
func (c *Controller) postInterviewerReply(nextText string, wrapped bool, history []interview.Message, userText string) {
	reply := nextText
	targetState := StateAwaitingAnswer

	switch {
	case wrapped:
		reply = wrapUpText
		targetState = StateWrapping
	case reply == "":
		reply = c.generateFollowUp(history, userText)
		targetState = StateWrapping
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.setTypingLocked(false)
	c.appendLocked(interview.SenderAI, reply)
	c.setStateLocked(targetState)
	c.mu.Unlock()

	c.deps.Speaker.Speak(reply)
}

func (c *Controller) generateFollowUp(history []interview.Message, userText string) string {
	if c.deps.FollowUp == nil {
		return genericFollowUpText
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply, err := c.deps.FollowUp.FollowUp(ctx, history, userText)
	if err != nil || strings.TrimSpace(reply) == "" {
		c.log.Warn("follow-up generation failed, using canned reply", zap.Error(err))
		return genericFollowUpText
	}
	return reply
}

// End submits the interview. Explicit user action only; exhausting the
// question list never submits by itself. A second End while one is in
// flight is rejected, and a failed submission re-enables the action.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateCompleted {
		c.mu.Unlock()
		return ErrSessionCompleted
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.submitting = true
	c.setStateLocked(StateSubmitting)
	submission := c.answers.ToSubmission(c.user.ID, c.deps.SessionID)
	c.mu.Unlock()

	// Submission is not cancellable by navigation; the service client's own
	// timeout still bounds it.
	result, err := c.deps.Service.SubmitResponses(context.WithoutCancel(ctx), submission)
	if err != nil {
		c.log.Warn("submission failed", zap.Error(err))
		c.mu.Lock()
		c.submitting = false
		c.setStateLocked(StateErrored)
		c.mu.Unlock()
		c.notify(Notice{
			Title:       "Error",
			Description: "Failed to complete the interview. Please try again.",
			Severity:    "error",
		})
		return err
	}

	c.mu.Lock()
	c.setStateLocked(StateCompleted)
	c.mu.Unlock()

	c.notify(Notice{
		Title:       "Interview Completed",
		Description: fmt.Sprintf("Your interview has been completed with a score of %g/10.", result.Score),
		Severity:    "info",
	})
	c.emit(newEvent(EventCompleted, CompletionData{Score: result.Score, InterviewID: result.InterviewID}))

	c.deps.Schedule(c.deps.Pace.Redirect, func() {
		c.emit(newEvent(EventRedirect, "/dashboard?interview="+result.InterviewID))
	})
	return nil
}

// ToggleMic flips the microphone track on the owned capture device.
func (c *Controller) ToggleMic() bool {
	c.mu.Lock()
	c.micEnabled = !c.micEnabled
	enabled := c.micEnabled
	c.mu.Unlock()

	if c.deps.Device != nil {
		c.deps.Device.SetMicEnabled(enabled)
	}
	return enabled
}

// ToggleVideo flips the camera flag. Video frames never cross the gateway;
// the flag drives the browser-side preview.
func (c *Controller) ToggleVideo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videoEnabled = !c.videoEnabled
	return c.videoEnabled
}

// ToggleAudio flips interviewer speech output, cancelling any current
// utterance when turning off.
func (c *Controller) ToggleAudio() bool {
	enabled := !c.deps.Speaker.Enabled()
	c.deps.Speaker.SetEnabled(enabled)
	return enabled
}

// Snapshot is the renderable session state.
type Snapshot struct {
	SessionID       string              `json:"sessionId"`
	State           string              `json:"state"`
	Typing          bool                `json:"typing"`
	Listening       bool                `json:"listening"`
	MicEnabled      bool                `json:"micEnabled"`
	VideoEnabled    bool                `json:"videoEnabled"`
	AudioEnabled    bool                `json:"audioEnabled"`
	CurrentQuestion *interview.Question `json:"currentQuestion,omitempty"`
	QuestionsTotal  int                 `json:"questionsTotal"`
	Answered        int                 `json:"answered"`
	Messages        []interview.Message `json:"messages"`
}

// State returns the renderable session state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := Snapshot{
		SessionID:      c.deps.SessionID,
		State:          c.state.String(),
		Typing:         c.typing,
		Listening:      c.deps.Capture.Listening(),
		MicEnabled:     c.micEnabled,
		VideoEnabled:   c.videoEnabled,
		AudioEnabled:   c.deps.Speaker.Enabled(),
		QuestionsTotal: c.seq.Len(),
		Answered:       c.answers.Len(),
		Messages:       c.timeline.Messages(),
	}
	if question, ok := c.seq.Current(); ok {
		snapshot.CurrentQuestion = &question
	}
	return snapshot
}

// Close tears the session down: capture stops, playback and its watchdog are
// cancelled, the capture device is released, and the auth subscription ends.
// An in-flight submission is left to finish; it is deliberately not
// cancellable from here.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	cancelRun := c.cancelRun
	c.mu.Unlock()

	if cancelRun != nil {
		cancelRun()
	}
	c.deps.Capture.Stop()
	c.deps.Speaker.Close()
	if c.deps.Device != nil {
		c.deps.Device.Release()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	c.log.Info("session closed")
}

func (c *Controller) appendLocked(sender interview.Sender, text string) {
	message := c.timeline.Append(sender, text)
	c.emit(newEvent(EventMessage, message))
}

func (c *Controller) setStateLocked(state State) {
	if c.state == state {
		return
	}
	c.state = state
	c.emit(newEvent(EventState, state.String()))
}

func (c *Controller) setTypingLocked(typing bool) {
	if c.typing == typing {
		return
	}
	c.typing = typing
	c.emit(newEvent(EventTyping, typing))
}

func (c *Controller) notify(notice Notice) {
	c.emit(newEvent(EventNotice, notice))
}

// emit never blocks; a slow or absent consumer only loses intermediate
// updates it can recover from a state snapshot.
func (c *Controller) emit(event Event) {
	select {
	case c.events <- event:
	default:
	}
}
