package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor/pkg/routing"
)

// intentsHandler handles GET /api/v1/intents: the static routing table plus
// the intents each live agent actually accepts. The two differ when an agent
// registers extra intents (workflow-addressed operations) or an agent is not
// registered at all.
func (s *Server) intentsHandler(c *gin.Context) {
	resp := &IntentsResponse{}

	for _, intent := range routing.RoutedIntents() {
		agentType, ok := routing.RouteIntent(intent)
		if !ok {
			continue
		}
		resp.Routes = append(resp.Routes, IntentRoute{Intent: intent, Agent: agentType})
	}

	if s.coach != nil {
		for _, ah := range s.coach.Health().RegisteredAgents {
			resp.Agents = append(resp.Agents, AgentIntents{
				AgentType: ah.Type,
				Intents:   ah.Intents,
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}
