package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gestia/gestia/internal/domain"
)

type EntityHistoryInput struct {
	EntityType string `path:"entityType" doc:"Entity tag (HistoriaUsuario, Tarea, Subtarea, Sprint, Epica, DailyMeeting)"`
	EntityID   int64  `path:"entityId" doc:"Entity ID"`
}

type EntityHistoryOutput struct {
	Body []*domain.ChangeRecord
}

type RecentHistoryInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" doc:"Maximum records to return"`
}

type RecentHistoryOutput struct {
	Body []*domain.ChangeRecord
}

type FilteredHistoryInput struct {
	EntityType string `query:"entity_type" doc:"Filter by entity tag"`
	EntityID   int64  `query:"entity_id" doc:"Filter by entity ID"`
	ActorID    int64  `query:"actor_id" doc:"Filter by actor"`
	Action     string `query:"action" doc:"Filter by change action"`
	From       string `query:"from" doc:"Inclusive start date (YYYY-MM-DD)"`
	To         string `query:"to" doc:"Inclusive end date (YYYY-MM-DD)"`
	Page       int    `query:"page" default:"1" minimum:"1" doc:"Page number"`
	PageSize   int    `query:"page_size" default:"20" minimum:"1" doc:"Records per page"`
}

type FilteredHistoryOutput struct {
	Body struct {
		Records  []*domain.ChangeRecord
		Total    int64
		Page     int
		PageSize int
	}
}

type HistoryStatisticsInput struct {
	From string `query:"from" required:"true" doc:"Inclusive start date (YYYY-MM-DD)"`
	To   string `query:"to" required:"true" doc:"Inclusive end date (YYYY-MM-DD)"`
}

type HistoryStatisticsOutput struct {
	Body *domain.ChangeStatistics
}

func RegisterHistoryRoutes(api huma.API, history AuditService) {
	huma.Register(api, huma.Operation{
		OperationID: "entity-history",
		Method:      http.MethodGet,
		Path:        "/history/{entityType}/{entityId}",
		Summary:     "Get the full change history of an entity",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *EntityHistoryInput) (*EntityHistoryOutput, error) {
		records, err := history.FindByEntity(ctx, domain.EntityType(input.EntityType), input.EntityID)
		if err != nil {
			return nil, mapDomainError(err, "failed to get entity history")
		}

		return &EntityHistoryOutput{Body: records}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recent-history",
		Method:      http.MethodGet,
		Path:        "/history/recent",
		Summary:     "Get the most recent changes across all entities",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *RecentHistoryInput) (*RecentHistoryOutput, error) {
		records, err := history.FindRecent(ctx, input.Limit)
		if err != nil {
			return nil, mapDomainError(err, "failed to get recent history")
		}

		return &RecentHistoryOutput{Body: records}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "filtered-history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "Search the change history",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *FilteredHistoryInput) (*FilteredHistoryOutput, error) {
		filter := domain.ChangeRecordFilter{
			Page:     input.Page,
			PageSize: input.PageSize,
		}
		if input.EntityType != "" {
			et := domain.EntityType(input.EntityType)
			filter.EntityType = &et
		}
		if input.EntityID != 0 {
			filter.EntityID = &input.EntityID
		}
		if input.ActorID != 0 {
			filter.ActorID = &input.ActorID
		}
		if input.Action != "" {
			action := domain.ChangeAction(input.Action)
			filter.Action = &action
		}
		if input.From != "" {
			d, err := parseDate(input.From, "from")
			if err != nil {
				return nil, err
			}
			filter.From = &d
		}
		if input.To != "" {
			d, err := parseDate(input.To, "to")
			if err != nil {
				return nil, err
			}
			filter.To = &d
		}

		records, total, err := history.FindFiltered(ctx, filter)
		if err != nil {
			return nil, mapDomainError(err, "failed to search history")
		}

		out := &FilteredHistoryOutput{}
		out.Body.Records = records
		out.Body.Total = total
		out.Body.Page = filter.Page
		out.Body.PageSize = filter.PageSize
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "history-statistics",
		Method:      http.MethodGet,
		Path:        "/history/statistics",
		Summary:     "Aggregate change counts over a date range",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *HistoryStatisticsInput) (*HistoryStatisticsOutput, error) {
		from, err := parseDate(input.From, "from")
		if err != nil {
			return nil, err
		}
		to, err := parseDate(input.To, "to")
		if err != nil {
			return nil, err
		}

		stats, err := history.Statistics(ctx, &from, &to)
		if err != nil {
			return nil, mapDomainError(err, "failed to compute history statistics")
		}

		return &HistoryStatisticsOutput{Body: stats}, nil
	})
}
