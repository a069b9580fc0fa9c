package controller

import (
	"net/http"

	"github.com/flickroom/client/internal/domain"
	"github.com/flickroom/client/pkg/rest"
)

type sessionView struct {
	Phase        domain.Phase        `json:"phase"`
	State        domain.SessionState `json:"state"`
	LastAllLiked string              `json:"last_all_liked,omitempty"`
}

func (c *controller) view(st domain.SessionState) sessionView {
	if st.Recommendations == nil {
		st.Recommendations = []string{}
	}

	return sessionView{
		Phase:        st.Phase(),
		State:        st,
		LastAllLiked: c.roomService.LastAllLiked(),
	}
}

func (c *controller) getSession(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(c.roomService.State())})
}

func (c *controller) createRoom(w http.ResponseWriter, r *http.Request) {
	st, err := c.roomService.CreateRoom(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(st)})
}

type joinRoomInput struct {
	RoomCode string `json:"room_code" validate:"required,max=64"`
}

func (c *controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	var input joinRoomInput
	if !c.readInput(w, r, &input) {
		return
	}

	st, err := c.roomService.JoinRoom(r.Context(), input.RoomCode)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(st)})
}

func (c *controller) startSession(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.StartSession(r.Context()); err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusAccepted, rest.Envelope{"data": c.view(c.roomService.State())})
}

// resumeRoom reattaches the held room to the realtime channel.
func (c *controller) resumeRoom(w http.ResponseWriter, r *http.Request) {
	st, err := c.roomService.Resume(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(st)})
}

func (c *controller) like(w http.ResponseWriter, r *http.Request) {
	st, err := c.roomService.Like(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(st)})
}

func (c *controller) dislike(w http.ResponseWriter, r *http.Request) {
	st, err := c.roomService.Dislike(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(st)})
}

func (c *controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.LeaveRoom(r.Context()); err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.view(c.roomService.State())})
}

func (c *controller) currentMedia(w http.ResponseWriter, r *http.Request) {
	detail, err := c.roomService.CurrentMedia(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if detail == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": detail})
}
