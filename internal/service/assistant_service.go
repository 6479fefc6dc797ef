package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// CourseFinder 课程元数据只读访问
type CourseFinder interface {
	FindByID(id uint) (*model.Course, error)
}

// CascadeResult 级联结果：内容永远非空，并标注产出层级。
// 供应商的原始错误绝不出现在这里
type CascadeResult struct {
	Content  string
	Tier     string
	Fallback bool
}

// AssistantService 按固定优先级依次尝试各AI层级（快速托管层→本地层→备用托管层），
// 第一个成功即停。任何层级失败都只记日志换下一层，全部失败时返回本地兜底内容，
// 因此对调用方永不报供应商错误。返回前无任何副作用，随时可以放弃
type AssistantService struct {
	tiers   []llm.Provider
	courses CourseFinder
	timeout time.Duration
}

func NewAssistantService(tiers []llm.Provider, courses CourseFinder, timeout time.Duration) *AssistantService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssistantService{
		tiers:   tiers,
		courses: courses,
		timeout: timeout,
	}
}

// Complete 执行级联。各层严格串行：优先层成功时不为低优先层浪费配额
func (s *AssistantService) Complete(ctx context.Context, req llm.Request) CascadeResult {
	capability := string(req.Capability)

	for _, tier := range s.tiers {
		tierCtx, cancel := context.WithTimeout(ctx, s.timeout)
		content, err := tier.Complete(tierCtx, req)
		cancel()

		if err == nil && req.Capability == llm.CapabilityQuizGeneration {
			err = llm.ValidateQuizPayload(content)
		}

		if err == nil {
			monitoring.TierAttempts.WithLabelValues(capability, tier.Name(), "success").Inc()
			return CascadeResult{Content: content, Tier: tier.Name()}
		}

		kind := llm.FailureKind(err)
		monitoring.TierAttempts.WithLabelValues(capability, tier.Name(), kind).Inc()
		logger.Log.Info("AI tier failed, trying next",
			zap.String("capability", capability),
			zap.String("tier", tier.Name()),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}

	monitoring.FallbackResponses.WithLabelValues(capability).Inc()
	logger.Log.Warn("all AI tiers failed, using local fallback",
		zap.String("capability", capability))

	return CascadeResult{Content: s.fallbackFor(req), Tier: "fallback", Fallback: true}
}

// CompleteOnce 只尝试最高优先层，不做级联。反馈生成这类非关键调用用它，
// 失败由调用方自己兜底
func (s *AssistantService) CompleteOnce(ctx context.Context, req llm.Request) (string, error) {
	if len(s.tiers) == 0 {
		return "", llm.ErrUnconfigured
	}

	tierCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.tiers[0].Complete(tierCtx, req)
}

// fallbackFor 确定性的本地兜底内容：调用方预置的优先，否则按能力套模板。
// 保证非空
func (s *AssistantService) fallbackFor(req llm.Request) string {
	if req.Fallback != "" {
		return req.Fallback
	}

	switch req.Capability {
	case llm.CapabilityVideoAnalysis:
		return "I can help you understand the video content. What specific aspects would you like to know more about?"
	case llm.CapabilityQuestionGeneration:
		return "I can help you create study questions for this course. What specific topics would you like to focus on?"
	default:
		return fmt.Sprintf("I understand you're asking about %q. I'm here to help with any questions you might have. Could you provide more context about what you'd like to know?", req.Prompt)
	}
}

// Chat 课程问答。courseID为0时作为通用助手回答
func (s *AssistantService) Chat(ctx context.Context, message string, courseID uint, history []llm.Message) (CascadeResult, error) {
	system := "You are a helpful AI assistant that can answer any question on any topic. Be accurate, encouraging and supportive, and explain complex topics in simple terms."

	if courseID != 0 {
		course, err := s.courses.FindByID(courseID)
		if err != nil {
			return CascadeResult{}, err
		}
		system = fmt.Sprintf(`You are an intelligent AI assistant specialized in educational content analysis and student support. You have access to detailed course information and can provide expert guidance on course content, videos, and learning materials.

Course Information:
%s
Be helpful, accurate, and encouraging. Reference specific course content when relevant, and maintain a professional yet friendly tone.`, buildCourseContext(course))
	}

	result := s.Complete(ctx, llm.Request{
		Capability: llm.CapabilityChat,
		System:     system,
		Prompt:     message,
		History:    history,
	})
	return result, nil
}

// AnalyzeVideo 生成针对某个课程视频的观看指引
func (s *AssistantService) AnalyzeVideo(ctx context.Context, videoURL string, courseID uint) (CascadeResult, error) {
	course, err := s.courses.FindByID(courseID)
	if err != nil {
		return CascadeResult{}, err
	}

	prompt := fmt.Sprintf(`Analyze the following course video content and provide insights about what students should focus on while watching:

Course Context:
%s
Video URL: %s

Provide:
1. Key concepts to watch for
2. Important points to note
3. Questions to think about while watching
4. How this video relates to the overall course objectives
5. Study tips for this specific video content`, buildCourseContext(course), videoURL)

	result := s.Complete(ctx, llm.Request{
		Capability: llm.CapabilityVideoAnalysis,
		System:     "You are an educational content analyst. Analyze video content and provide learning guidance for students.",
		Prompt:     prompt,
	})
	return result, nil
}

// GenerateStudyQuestions 根据课程信息生成自测问题列表
func (s *AssistantService) GenerateStudyQuestions(ctx context.Context, courseID uint) (CascadeResult, error) {
	course, err := s.courses.FindByID(courseID)
	if err != nil {
		return CascadeResult{}, err
	}

	prompt := fmt.Sprintf(`Based on the following course information, generate 5-7 thoughtful study questions that will help students test their understanding and prepare for assessments:

%s
Generate questions that test understanding of key concepts, encourage critical thinking, relate to real-world applications and cover different difficulty levels.`, buildCourseContext(course))

	result := s.Complete(ctx, llm.Request{
		Capability: llm.CapabilityQuestionGeneration,
		System:     "You are an educational assessment specialist. Create thoughtful study questions that help students learn effectively.",
		Prompt:     prompt,
	})
	return result, nil
}

// buildCourseContext 把课程元数据拼成提示词上下文
func buildCourseContext(course *model.Course) string {
	var b strings.Builder

	fmt.Fprintf(&b, "COURSE DETAILS:\n")
	fmt.Fprintf(&b, "Title: %s\n", course.Title)
	if course.EducatorName != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.EducatorName)
	}
	fmt.Fprintf(&b, "Duration: %d weeks\n", course.DurationWeeks)
	fmt.Fprintf(&b, "Difficulty Level: %s\n", course.Difficulty)
	if course.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", course.Category)
	}
	b.WriteString("\n")

	if course.Description != "" {
		fmt.Fprintf(&b, "COURSE DESCRIPTION:\n%s\n\n", course.Description)
	}

	if len(course.LearningObjectives) > 0 {
		b.WriteString("LEARNING OBJECTIVES:\n")
		for i, objective := range course.LearningObjectives {
			fmt.Fprintf(&b, "%d. %s\n", i+1, objective)
		}
		b.WriteString("\n")
	}

	if len(course.Prerequisites) > 0 {
		b.WriteString("PREREQUISITES:\n")
		for i, prereq := range course.Prerequisites {
			fmt.Fprintf(&b, "%d. %s\n", i+1, prereq)
		}
		b.WriteString("\n")
	}

	if len(course.Contents) > 0 {
		b.WriteString("LESSON CONTENT AND VIDEO MATERIALS:\n")
		for i, content := range course.Contents {
			fmt.Fprintf(&b, "Lesson %d:\n", i+1)
			if content.Title != "" {
				fmt.Fprintf(&b, "  Topic: %s\n", content.Title)
			}
			if content.Description != "" {
				fmt.Fprintf(&b, "  Concepts Covered: %s\n", content.Description)
			}
			if content.VideoURL != "" {
				b.WriteString("  Video Demonstration: Available\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}
