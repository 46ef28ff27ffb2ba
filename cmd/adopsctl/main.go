package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"adops-backend/models"
	taskapimodels "adops-backend/models/api/task"
)

// Консоль оператора: просмотр и решение задач согласования через HTTP API сервиса

var rootCmd = &cobra.Command{Use: "adopsctl"}

type response struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	RowCount int64           `json:"row_count"`
}

type apiClient struct {
	baseURL  string
	tenantID string
	userID   string
	client   *http.Client
}

func newAPIClient(cmd *cobra.Command) *apiClient {
	baseURL, _ := cmd.Flags().GetString("api")
	tenantID, _ := cmd.Flags().GetString("tenant")
	userID, _ := cmd.Flags().GetString("user")
	if tenantID == "" {
		fmt.Fprintln(os.Stderr, "Ошибка: не указан тенант (--tenant или ADOPS_TENANT)")
		os.Exit(1)
	}
	return &apiClient{
		baseURL:  baseURL,
		tenantID: tenantID,
		userID:   userID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) call(method, path string, payload any) (*response, error) {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(body)
	}
	r, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	r.Header.Add("Content-Type", "application/json")
	r.Header.Add("X-Tenant-ID", c.tenantID)
	if c.userID != "" {
		r.Header.Add("X-User-ID", c.userID)
	}
	resp, err := c.client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	result := response{}
	if err = json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("неожиданный ответ сервиса (%v): %s", resp.StatusCode, string(respBody))
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("сервис вернул ошибку (%v): %s", resp.StatusCode, result.Message)
	}
	return &result, nil
}

// download сохраняет бинарный ответ сервиса в файл, имя берёт из Content-Disposition
func (c *apiClient) download(path string, payload any, out string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	r, err := http.NewRequest("POST", c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	r.Header.Add("Content-Type", "application/json")
	r.Header.Add("X-Tenant-ID", c.tenantID)
	if c.userID != "" {
		r.Header.Add("X-User-ID", c.userID)
	}
	resp, err := c.client.Do(r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		result := response{}
		if err = json.Unmarshal(respBody, &result); err == nil && result.Message != "" {
			return "", fmt.Errorf("сервис вернул ошибку (%v): %s", resp.StatusCode, result.Message)
		}
		return "", fmt.Errorf("сервис вернул ошибку (%v)", resp.StatusCode)
	}
	if out == "" {
		out = fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	}
	file, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if _, err = io.Copy(file, resp.Body); err != nil {
		return "", err
	}
	return out, nil
}

func fileNameFromDisposition(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return fmt.Sprintf("tasks-%v.xlsx", time.Now().Format("20060102-150405"))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
	os.Exit(1)
}

func printTask(task taskapimodels.TaskView) {
	overdue := ""
	if task.Overdue {
		overdue = " [просрочена]"
	}
	fmt.Fprintf(os.Stdout, "- %s  %-16s %-22s %s%s\n", task.ID, task.Status, task.ToolName, task.ActionDetail, overdue)
	fmt.Fprintf(os.Stdout, "    создана: %s, срок реакции: %s\n",
		task.CreatedAt.Format(time.RFC3339), task.DueAt.Format(time.RFC3339))
	if task.MediaBuyID != "" {
		fmt.Fprintf(os.Stdout, "    закупка: %s\n", task.MediaBuyID)
	}
	if task.Resolution != "" {
		fmt.Fprintf(os.Stdout, "    решение: %s (%s), %s\n", task.Resolution, task.ResolvedBy, task.ResolutionDetail)
	}
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Список задач согласования",
		Run: func(cmd *cobra.Command, args []string) {
			statuses, _ := cmd.Flags().GetStringSlice("status")
			limit, _ := cmd.Flags().GetInt("limit")
			filter := taskapimodels.TaskFilter{}
			filter.Limit = limit
			for _, status := range statuses {
				filter.Statuses = append(filter.Statuses, models.TaskStatus(status))
			}
			client := newAPIClient(cmd)
			resp, err := client.call("POST", "/api/v1/tasks/list", filter)
			if err != nil {
				fail(err)
			}
			list := []taskapimodels.TaskView{}
			if err = json.Unmarshal(resp.Data, &list); err != nil {
				fail(err)
			}
			if len(list) == 0 {
				fmt.Fprintln(os.Stdout, "Задач не найдено.")
				return
			}
			fmt.Fprintf(os.Stdout, "Задачи (%v из %v):\n", len(list), resp.RowCount)
			for _, task := range list {
				printTask(task)
			}
		},
	}
	cmd.Flags().StringSlice("status", []string{string(models.TaskStatusPendingApproval)}, "Фильтр по статусам")
	cmd.Flags().Int("limit", 20, "Число записей")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Карточка задачи с историей",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := newAPIClient(cmd)
			resp, err := client.call("GET", "/api/v1/tasks/"+args[0], nil)
			if err != nil {
				fail(err)
			}
			task := taskapimodels.TaskView{}
			if err = json.Unmarshal(resp.Data, &task); err != nil {
				fail(err)
			}
			printTask(task)
			if len(task.Payload) > 0 {
				fmt.Fprintf(os.Stdout, "    параметры: %s\n", string(task.Payload))
			}
			resp, err = client.call("GET", "/api/v1/tasks/"+args[0]+"/history", nil)
			if err != nil {
				fail(err)
			}
			history := []taskapimodels.AuditView{}
			if err = json.Unmarshal(resp.Data, &history); err != nil {
				fail(err)
			}
			fmt.Fprintln(os.Stdout, "История:")
			for _, event := range history {
				fmt.Fprintf(os.Stdout, "- %s  %-24s %s\n",
					event.CreatedAt.Format(time.RFC3339), event.EventType, event.Detail)
			}
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Выгрузка задач в Excel",
		Run: func(cmd *cobra.Command, args []string) {
			statuses, _ := cmd.Flags().GetStringSlice("status")
			out, _ := cmd.Flags().GetString("out")
			filter := taskapimodels.TaskFilter{}
			for _, status := range statuses {
				filter.Statuses = append(filter.Statuses, models.TaskStatus(status))
			}
			client := newAPIClient(cmd)
			saved, err := client.download("/api/v1/tasks/export", filter, out)
			if err != nil {
				fail(err)
			}
			fmt.Fprintf(os.Stdout, "Файл сохранён: %s\n", saved)
		},
	}
	cmd.Flags().StringSlice("status", nil, "Фильтр по статусам, пусто — все задачи")
	cmd.Flags().String("out", "", "Имя файла выгрузки")
	return cmd
}

func resolveCmd(use, short string, resolution models.TaskResolution) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			comment, _ := cmd.Flags().GetString("comment")
			payload := taskapimodels.ResolveRequest{
				Resolution: resolution,
				Comment:    comment,
			}
			if err := payload.Validate(); err != nil {
				fail(err)
			}
			client := newAPIClient(cmd)
			resp, err := client.call("PUT", "/api/v1/tasks/"+args[0]+"/resolve", payload)
			if err != nil {
				fail(err)
			}
			task := taskapimodels.TaskView{}
			if err = json.Unmarshal(resp.Data, &task); err != nil {
				fail(err)
			}
			fmt.Fprintf(os.Stdout, "Задача %s: %s\n", task.ID, task.Status)
			if task.ResolutionDetail != "" {
				fmt.Fprintf(os.Stdout, "Итог: %s\n", task.ResolutionDetail)
			}
		},
	}
	cmd.Flags().String("comment", "", "Комментарий проверяющего")
	return cmd
}

func main() {
	// .env удобен при локальной работе, его отсутствие не ошибка
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String("api", envOrDefault("ADOPS_API", "http://localhost:8080"), "Адрес сервиса")
	rootCmd.PersistentFlags().String("tenant", os.Getenv("ADOPS_TENANT"), "Идентификатор тенанта")
	rootCmd.PersistentFlags().String("user", os.Getenv("ADOPS_USER"), "Идентификатор проверяющего")

	rootCmd.AddCommand(
		listCmd(),
		showCmd(),
		exportCmd(),
		resolveCmd("approve", "Утвердить задачу", models.TaskResolutionApproved),
		resolveCmd("reject", "Отклонить задачу", models.TaskResolutionRejected),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func envOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
