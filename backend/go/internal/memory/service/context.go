package service

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// GetMemoryContext 渲染注入系统提示的记忆块。
// 键值记忆和语义检索并行获取，任一来源失败只记录日志并跳过，都为空时返回 ""。
func (s *MemoryService) GetMemoryContext(ctx context.Context, userID uint, currentMessage string) string {
	var (
		facts []models.Fact
		hits  []models.SemanticHit
	)
	log := s.logger.WithField("user_id", userID)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		facts, err = s.facts.GetAllMemories(ctx, userID)
		if err != nil {
			log.WithErr(err).Warn("memory context: failed to load facts")
			facts = nil
		}
		return nil
	})
	if strings.TrimSpace(currentMessage) != "" {
		g.Go(func() error {
			var err error
			hits, err = s.SearchSemanticMemories(ctx, userID, currentMessage, s.opts.ContextLimit)
			if err != nil {
				log.WithErr(err).Warn("memory context: semantic search failed")
				hits = nil
			}
			return nil
		})
	}
	_ = g.Wait()

	return RenderContext(facts, hits)
}

// RenderContext 按固定格式渲染记忆块。
// 键值记忆按类别分组，类别顺序为首次出现的顺序。
func RenderContext(facts []models.Fact, hits []models.SemanticHit) string {
	var sb strings.Builder

	if len(facts) > 0 {
		sb.WriteString("## User Information:\n")
		var order []models.FactCategory
		grouped := make(map[models.FactCategory][]string)
		for _, f := range facts {
			if _, ok := grouped[f.Category]; !ok {
				order = append(order, f.Category)
			}
			grouped[f.Category] = append(grouped[f.Category], fmt.Sprintf("%s: %s", f.Key, f.Value))
		}
		for _, c := range order {
			fmt.Fprintf(&sb, "**%ss**: %s\n", capitalize(string(c)), strings.Join(grouped[c], ", "))
		}
		sb.WriteString("\n")
	}

	if len(hits) > 0 {
		sb.WriteString("## Relevant Context:\n")
		for i, h := range hits {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, h.Content)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
