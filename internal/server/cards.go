package server

import (
	"net/http"
)

type cardBacksResponse struct {
	CardBacks []string `json:"card_backs"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.deps.Cards.ListVisible(r.Context())
	if err != nil {
		s.writeError(w, r, "list_cards", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCardBacks(w http.ResponseWriter, r *http.Request) {
	backs, err := s.deps.CardBacks.List()
	if err != nil {
		s.writeError(w, r, "card_backs", err)
		return
	}
	writeJSON(w, http.StatusOK, cardBacksResponse{CardBacks: backs})
}
