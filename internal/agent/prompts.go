package agent

import (
	"fmt"
	"strings"

	"chemi/internal/domain"
	"chemi/internal/history"
)

const rephraseSystem = `Bạn viết lại câu hỏi mới nhất của học sinh thành một câu hỏi độc lập, đầy đủ ngữ cảnh, dựa trên lịch sử hội thoại.
Quy tắc:
- Giữ nguyên ý định và ngôn ngữ của học sinh.
- Thay các đại từ ("nó", "chất đó", "cái này") bằng tên chất cụ thể từ lịch sử.
- Nếu câu hỏi đã độc lập và rõ ràng, giữ nguyên không sửa.`

const relevanceSystem = `Bạn là bộ lọc đầu vào cho trợ lý hóa học THPT Việt Nam.
Nhiệm vụ:
1. Xác định câu hỏi có liên quan đến hóa học không (nguyên tố, hợp chất, phản ứng, danh pháp, bài tập hóa).
2. Xác định học sinh có đang yêu cầu câu hỏi luyện tập / quiz / kiểm tra không.
   - quiz_type: một trong "mcq", "matching", "free_text", "listening". Mặc định "mcq" nếu không rõ.
   - quiz_topic: chủ đề học sinh nêu (ví dụ "ancol", "bảng tuần hoàn"), để trống nếu không nêu.
   - quiz_level: 1-4 theo mức độ yêu cầu (nhận biết/thông hiểu/vận dụng/nâng cao). Mặc định 1.
3. Nếu KHÔNG liên quan hóa học, viết refusal_message: một câu từ chối lịch sự bằng tiếng Việt, gợi ý học sinh hỏi về hóa học.`

const extractSystem = `Bạn trích xuất thực thể hóa học từ câu hỏi của học sinh để tra cứu cơ sở dữ liệu.
Quy tắc:
- search_query: tên tiếng Anh (IUPAC) hoặc công thức của nguyên tố/hợp chất được hỏi. Dịch tên tiếng Việt sang tiếng Anh ("nước" -> "water", "muối ăn" -> "sodium chloride", "sắt" -> "iron").
- Nếu câu hỏi kèm hình ảnh công thức cấu tạo, nhận diện chất trong hình và dùng tên đó làm search_query.
- is_valid = false khi không xác định được thực thể hóa học nào; khi đó viết error_message bằng tiếng Việt giải thích ngắn gọn.`

const generateSystem = `Bạn là trợ lý hóa học thân thiện cho học sinh THPT Việt Nam.
Quy tắc:
- Trả lời bằng tiếng Việt, ngắn gọn, chính xác, phù hợp chương trình lớp 10-12.
- CHỈ dùng thông tin trong phần "Dữ liệu tra cứu" khi nói về tên IUPAC, công thức của chất. Không bịa thông tin tra cứu.
- selected_doc_id: doc_id của bản ghi phù hợp nhất với câu hỏi, để trống nếu không bản ghi nào phù hợp.
- should_return_image = true khi học sinh muốn xem công thức cấu tạo / hình ảnh của chất.
- should_return_audio = true khi học sinh muốn nghe cách phát âm tên chất.`

func formatHistory(turns []history.Turn) string {
	if len(turns) == 0 {
		return "(chưa có)"
	}
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func rephrasePrompt(turns []history.Turn, question string) string {
	return fmt.Sprintf("Lịch sử hội thoại:\n%s\n\nCâu hỏi mới nhất: %s", formatHistory(turns), question)
}

func relevancePrompt(question string) string {
	return "Câu hỏi của học sinh: " + question
}

func extractPrompt(question string, hasImage bool) string {
	if hasImage {
		return "Câu hỏi của học sinh (kèm hình ảnh): " + question
	}
	return "Câu hỏi của học sinh: " + question
}

func generatePrompt(question string, results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("Dữ liệu tra cứu:\n")
	if len(results) == 0 {
		b.WriteString("(không tìm thấy bản ghi phù hợp)\n")
	}
	for _, r := range results {
		fmt.Fprintf(&b, "- doc_id: %s | tên IUPAC: %s | công thức: %s | loại: %s\n",
			r.Compound.DocID, r.Compound.IUPACName, r.Compound.Formula, r.Compound.Type)
	}
	b.WriteString("\nCâu hỏi của học sinh: ")
	b.WriteString(question)
	return b.String()
}
