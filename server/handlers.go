package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// idsResponse 批量生成结果
type idsResponse struct {
	IDs []string `json:"ids"`
}

// decomposeResponse 拆解结果
type decomposeResponse struct {
	ID           string    `json:"id"`
	Time         uint64    `json:"time"`
	Sequence     uint64    `json:"sequence"`
	DataCenterID uint64    `json:"data_center_id"`
	MachineID    uint64    `json:"machine_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// layoutResponse 位布局
type layoutResponse struct {
	TimeBits        uint8  `json:"time_bits"`
	SequenceBits    uint8  `json:"sequence_bits"`
	DataCenterBits  uint8  `json:"data_center_bits"`
	MachineBits     uint8  `json:"machine_bits"`
	TimeShift       uint8  `json:"time_shift"`
	DataCenterShift uint8  `json:"data_center_shift"`
	MachineShift    uint8  `json:"machine_shift"`
	MaxTime         uint64 `json:"max_time"`
	MaxSequence     uint64 `json:"max_sequence"`
	MaxDataCenterID uint64 `json:"max_data_center_id"`
	MaxMachineID    uint64 `json:"max_machine_id"`
	DataCenterID    uint64 `json:"data_center_id"`
	MachineID       uint64 `json:"machine_id"`
}

// parseCount 解析 count 参数，空串视为 1
func parseCount(raw string, limit int) (int, error) {
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "count %q is not an integer", raw)
	}
	if n < 1 || n > limit {
		return 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "count %d out of range [1, %d]", n, limit)
	}
	return n, nil
}

func (s *Server) handleNextIDs(c *gin.Context) {
	n, err := parseCount(c.Query("count"), s.cfg.MaxBatch)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidCount, err.Error())
		return
	}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := s.gen.NextID()
		if err != nil {
			s.logger.WarnContext(c.Request.Context(), "generate id failed",
				clog.Error(err),
				clog.Int("generated", i),
				clog.Int("requested", n),
				clog.String("request_id", c.GetString(requestIDKey)),
			)
			abortWithGenerateError(c, err)
			return
		}
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	c.JSON(http.StatusOK, idsResponse{IDs: ids})
}

// handleDecompose 与 snowflake.Decompose 一致，接受任意 uint64，最高位不属于任何字段
func (s *Server) handleDecompose(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidID, "id must be an unsigned 64-bit decimal integer")
		return
	}

	d := s.gen.Decompose(id)
	c.JSON(http.StatusOK, decomposeResponse{
		ID:           strconv.FormatUint(id, 10),
		Time:         d.Time,
		Sequence:     d.Sequence,
		DataCenterID: d.DataCenterID,
		MachineID:    d.MachineID,
		Timestamp:    s.gen.Timestamp(id).UTC(),
	})
}

func (s *Server) handleLayout(c *gin.Context) {
	l := s.gen.Layout()
	c.JSON(http.StatusOK, layoutResponse{
		TimeBits:        l.TimeBits(),
		SequenceBits:    l.SequenceBits(),
		DataCenterBits:  l.DataCenterBits(),
		MachineBits:     l.MachineBits(),
		TimeShift:       l.TimeShift(),
		DataCenterShift: l.DataCenterShift(),
		MachineShift:    l.MachineShift(),
		MaxTime:         l.MaxTime(),
		MaxSequence:     l.MaxSequence(),
		MaxDataCenterID: l.MaxDataCenterID(),
		MaxMachineID:    l.MaxMachineID(),
		DataCenterID:    s.gen.DataCenterID(),
		MachineID:       s.gen.MachineID(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
